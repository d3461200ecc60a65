package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// DeviceInfo describes one configured input device.
type DeviceInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Wiring string `json:"wiring"`
}

// DevicesReport is the json output of the devices command.
type DevicesReport struct {
	Box     string       `json:"box"`
	Devices []DeviceInfo `json:"devices"`
	Outputs []string     `json:"outputs"`
}

func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the input and output devices of the box",
		Long: `List the devices configured in box.yaml.

The devices list is built against simulated hardware, so configuration
errors show up here without touching the real pins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			return runDevices(rootOpts, cfg, cmd.OutOrStdout())
		},
	}
}

func runDevices(opts *RootOptions, cfg *config.BoxConfig, w io.Writer) error {
	sim, err := simulatedHardware(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare hardware", err)
	}
	if _, err := input.Build(cfg.Input, cfg.Devices, sim.Input, logging.Discard()); err != nil {
		return WrapExitError(ExitFailure, "invalid devices", err)
	}
	outputs, _ := buildOutputs(cfg, sim, logging.Discard())

	report := DevicesReport{
		Box:     cfg.Box.ID,
		Devices: make([]DeviceInfo, 0, len(cfg.Devices)),
		Outputs: outputs.Classes(),
	}
	for _, d := range cfg.Devices {
		report.Devices = append(report.Devices, DeviceInfo{Name: d.Label(), Type: d.Type, Wiring: wiring(cfg, d)})
	}

	if opts.Format == "json" {
		return writeJSON(w, report)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tWIRING")
	for _, d := range report.Devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Type, d.Wiring)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\noutputs: %v\n", report.Outputs)
	return nil
}

// wiring describes where a device is connected.
func wiring(cfg *config.BoxConfig, d config.Device) string {
	switch d.Type {
	case config.DeviceExpanderButton:
		return fmt.Sprintf("mcp23017 0x%02x pin %d", cfg.Bus.ExpanderAddress, d.Pin)
	case config.DeviceGPIOButton:
		return fmt.Sprintf("gpio %d", d.Pin)
	case config.DeviceGyro:
		return fmt.Sprintf("mpu6050 0x%02x on i2c-%d", cfg.Bus.AccelerometerAddress, cfg.Bus.I2CBus)
	case config.DeviceRotaryEncoder:
		return fmt.Sprintf("gpio clk %d dt %d button %d", d.ClkPin, d.DtPin, d.ButtonPin)
	case config.DeviceDistanceSensor:
		return fmt.Sprintf("gpio trigger %d echo %d", d.TriggerPin, d.EchoPin)
	default:
		return "unknown"
	}
}
