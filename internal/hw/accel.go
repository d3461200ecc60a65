package hw

import (
	"fmt"

	i2c "github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"
)

// Accelerometer reports acceleration in g on three axes.
type Accelerometer interface {
	Acceleration() (x, y, z float64, err error)
}

const (
	mpuPowerMgmt1 = 0x6B
	mpuAccelXOut  = 0x3B
	mpuAccelYOut  = 0x3D
	mpuAccelZOut  = 0x3F

	// LSB per g at the power-on full scale of ±2 g.
	mpuScale = 16384.0
)

func init() {
	// go-i2c logs every register access at debug level.
	_ = logger.ChangePackageLogLevel("i2c", logger.InfoLevel)
}

// MPU6050 reads the accelerometer half of an MPU-6050.
type MPU6050 struct {
	bus *Bus
	dev *i2c.I2C
}

// OpenMPU6050 opens the sensor and clears its sleep bit.
func OpenMPU6050(bus *Bus, i2cBus int, address uint8) (*MPU6050, error) {
	m := &MPU6050{bus: bus}
	err := bus.Do(func() error {
		dev, err := i2c.NewI2C(address, i2cBus)
		if err != nil {
			return err
		}
		if err := dev.WriteRegU8(mpuPowerMgmt1, 0); err != nil {
			dev.Close()
			return err
		}
		m.dev = dev
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mpu6050 at 0x%02x: %w", address, err)
	}
	return m, nil
}

// Acceleration reads all three axes inside one bus transaction so the sample
// is consistent.
func (m *MPU6050) Acceleration() (x, y, z float64, err error) {
	var raw [3]int16
	err = m.bus.Do(func() error {
		for i, reg := range []byte{mpuAccelXOut, mpuAccelYOut, mpuAccelZOut} {
			v, err := m.dev.ReadRegS16BE(reg)
			if err != nil {
				return err
			}
			raw[i] = v
		}
		return nil
	})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("mpu6050 read: %w", err)
	}
	return float64(raw[0]) / mpuScale, float64(raw[1]) / mpuScale, float64(raw[2]) / mpuScale, nil
}

func (m *MPU6050) Close() error {
	return m.bus.Do(m.dev.Close)
}
