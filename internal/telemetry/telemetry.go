// Package telemetry mirrors sensor activity and quest outcomes to InfluxDB
// for play-testing dashboards. Writes are batched and non-blocking; the game
// never waits on the database.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/steps"
)

const (
	connectTimeout        = 10 * time.Second
	millisecondsPerSecond = 1000
)

var (
	ErrDisabled         = errors.New("telemetry: disabled in configuration")
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

// PointWriter is the part of the InfluxDB write API the forwarder needs.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Client owns the InfluxDB connection.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      *logging.Logger

	mu     sync.Mutex
	closed bool
}

// Connect pings the server and opens a batching write API.
func Connect(ctx context.Context, cfg config.TelemetryConfig, token string, log *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond))

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:      log.With("component", "telemetry"),
	}
	go c.logWriteErrors(c.writeAPI.Errors())
	return c, nil
}

func (c *Client) logWriteErrors(errs <-chan error) {
	for err := range errs {
		c.log.Warn("influx write failed", "error", err)
	}
}

// Run forwards events until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)
	Forward(ctx, c.writeAPI, sub)
	return nil
}

// Close flushes pending points and closes the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.writeAPI.Flush()
	c.client.Close()
}

// Forward writes a point for every mapped event from sub until ctx ends or
// sub is closed.
func Forward(ctx context.Context, w PointWriter, sub events.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if p, ok := Point(e); ok {
				w.WritePoint(p)
			}
		}
	}
}

// Point maps an event to an InfluxDB point. Events without a mapping
// report false.
func Point(e events.Event) (*write.Point, bool) {
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	f := e.Fields
	prefix, suffix, _ := strings.Cut(e.Name, ".")

	switch {
	case e.Name == "sensor.input":
		tags := map[string]string{
			"device_type": str(f["device_type"]),
			"value":       str(f["value"]),
		}
		fields := map[string]interface{}{"count": 1}
		for k, v := range f {
			if k == "value" {
				continue
			}
			if n, ok := steps.Number(v); ok {
				fields[k] = n
			}
		}
		return write.NewPoint("sensor_input", tags, fields, ts), true

	case e.Name == "step.matched" || e.Name == "step.mismatched":
		tags := map[string]string{"quest": str(f["quest"]), "path": str(f["path"]), "result": suffix}
		return write.NewPoint("step", tags, map[string]interface{}{"count": 1}, ts), true

	case prefix == "path" && suffix != "started":
		tags := map[string]string{"quest": str(f["quest"]), "path": str(f["path"]), "outcome": suffix}
		fields := map[string]interface{}{"count": 1}
		for _, k := range []string{"elapsed_ms", "mismatches", "hints", "matched"} {
			if n, ok := steps.Number(f[k]); ok {
				fields[k] = n
			}
		}
		return write.NewPoint("path_outcome", tags, fields, ts), true

	case prefix == "quest" && (suffix == "won" || suffix == "lost" || suffix == "aborted"):
		tags := map[string]string{"quest": str(f["quest"]), "outcome": suffix}
		return write.NewPoint("quest_outcome", tags, map[string]interface{}{"count": 1}, ts), true

	case e.Name == "input.dropped" || e.Name == "output.dropped":
		return write.NewPoint("drops", map[string]string{"kind": prefix}, map[string]interface{}{"count": 1}, ts), true
	}
	return nil, false
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
