package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/QuestBox/internal/api"
	"github.com/AaronLay10/QuestBox/internal/assets"
	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/game"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/mqtt"
	"github.com/AaronLay10/QuestBox/internal/telemetry"
	"github.com/AaronLay10/QuestBox/internal/version"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Simulate bool
	// Linger keeps outputs alive after the quest ends so the final cues
	// can play out.
	Linger time.Duration
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <quest.json | quest-id>",
		Short: "Play a quest on the box",
		Long: `Play a quest from start to finish.

The argument is either a path to a quest document or the id of a quest in
the games folder (<games_dir>/<id>/<id>.json). With --simulate no hardware
is opened and sensor input is read from stdin, one event per line:

  button red
  rotary_encoder_picture key
  {"device_type": "gyro", "value": "shaking"}
  hint`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runQuest(ctx, rootOpts, opts, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "use simulated hardware and read input from stdin")
	cmd.Flags().DurationVar(&opts.Linger, "linger", 3*time.Second, "time to keep outputs running after the quest ends")

	return cmd
}

// questPath maps a quest id to its file in the games folder. Anything that
// looks like a path is returned unchanged.
func questPath(cfg *config.BoxConfig, arg string) string {
	if strings.HasSuffix(arg, ".json") || strings.ContainsRune(arg, os.PathSeparator) {
		return arg
	}
	return assets.NewResolver(cfg.Box.GamesDir).QuestFile(arg)
}

func runQuest(ctx context.Context, rootOpts *RootOptions, opts *RunOptions, arg string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load secrets", err)
	}
	log := newLogger(rootOpts, cfg).With("box", cfg.Box.ID)

	q, err := game.LoadQuest(questPath(cfg, arg))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load quest", err)
	}

	hostname, _ := os.Hostname()
	events.Emit(events.LevelInfo, "system.startup", "questbox starting", map[string]interface{}{
		"box":      cfg.Box.ID,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
		"simulate": opts.Simulate,
	})
	defer events.Emit(events.LevelInfo, "system.shutdown", "questbox stopping", map[string]interface{}{"box": cfg.Box.ID})

	store, err := openStore(ctx, cfg, secrets)
	if err != nil {
		// The box plays without a log rather than not at all.
		log.Warn("event store unavailable, events will not be persisted", "driver", cfg.Storage.Driver, "error", err)
	} else if store != nil {
		events.SetStore(store)
		defer func() {
			events.SetStore(nil)
			store.Close()
		}()
		log.Info("event store opened", "driver", cfg.Storage.Driver)
	}

	devices, err := openHardware(cfg, opts.Simulate)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open hardware", err)
	}
	defer devices.Close()

	queue := input.NewQueue(cfg.Input.QueueSize)
	inputs := input.NewManager(queue, log, cfg.Input.LoopDelay)
	adapters, err := input.Build(cfg.Input, cfg.Devices, devices.Input, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build input devices", err)
	}
	for _, a := range adapters {
		inputs.Add(a)
		events.Emit(events.LevelInfo, "device.connected", "", map[string]interface{}{"device": a.Name()})
	}

	outputs, audio := buildOutputs(cfg, devices, log)

	engine, err := game.NewEngine(q, queue.C(), audio, outputs, assets.NewResolver(cfg.Box.GamesDir), log, game.Options{
		PollTimeout: cfg.Game.PollTimeout,
		Cues:        cfg.Cues,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid cues in box config", err)
	}
	events.Emit(events.LevelInfo, "quest.loaded", q.Title, map[string]interface{}{
		"quest": q.ID,
		"paths": len(q.Paths),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	checks := map[string]func() bool{}

	if cfg.MQTT.Enabled {
		client, bridge := connectMQTT(cfg, secrets, inputs, log)
		defer client.Disconnect()
		checks["mqtt"] = client.IsConnected
		sub := events.Subscribe()
		g.Go(func() error {
			defer events.Unsubscribe(sub)
			return bridge.Run(gctx, sub)
		})
	}

	if cfg.Telemetry.Enabled {
		tc, err := telemetry.Connect(ctx, cfg.Telemetry, secrets.InfluxToken, log)
		if err != nil {
			log.Warn("telemetry unavailable", "error", err)
		} else {
			defer tc.Close()
			g.Go(func() error { return tc.Run(gctx) })
		}
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:   cfg.API,
			BoxID:    cfg.Box.ID,
			Secrets:  secrets,
			Logger:   log,
			Injector: inputs,
			Queue:    queue,
			Outputs:  outputs,
			Status:   func() (game.Status, bool) { return engine.Status(), true },
			Checks:   checks,
			Version:  version.Version,
		})
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to start api", err)
		}
		defer srv.Close()
	}

	inputs.Start(gctx)
	defer inputs.Stop()
	outputs.Start(gctx)
	defer outputs.Stop()

	if opts.Simulate {
		log.Info("simulated hardware, reading input from stdin")
		go feedLines(gctx, stdin, inputs, log)
	}

	var result game.Result
	g.Go(func() error {
		defer cancel()
		res, err := engine.Run(gctx)
		result = res
		if err == nil && opts.Linger > 0 {
			select {
			case <-time.After(opts.Linger):
			case <-ctx.Done():
			}
		}
		return err
	})

	err = g.Wait()
	if perr := printResult(rootOpts, stdout, result); perr != nil {
		return perr
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		log.Info("quest interrupted")
		return WrapExitError(ExitFailure, "quest interrupted", err)
	default:
		return WrapExitError(ExitFailure, "quest aborted", err)
	}
}

// connectMQTT starts the broker connection in the background. The input
// subscription is restored on every reconnect.
func connectMQTT(cfg *config.BoxConfig, secrets config.Secrets, inj mqtt.Injector, log *logging.Logger) (*mqtt.Client, *mqtt.Bridge) {
	mlog := log.With("component", "mqtt")

	var bridge *mqtt.Bridge
	client := mqtt.NewClient(cfg.MQTT, secrets.MQTTPassword,
		func() {
			if err := bridge.SubscribeInput(); err != nil {
				mlog.Warn("failed to subscribe to input topic", "error", err)
			}
		},
		func(err error) {
			bridge.ClearSubscriptions()
			mlog.Warn("broker connection lost", "error", err)
		},
	)
	bridge = mqtt.NewBridge(client, inj, cfg.MQTT.TopicPrefix, cfg.Box.ID, log)

	if err := client.Connect(); err != nil {
		mlog.Warn("broker unreachable, retrying in background", "url", client.URL(), "error", err)
	} else {
		mlog.Info("connected to broker", "url", client.URL(), "input_topic", bridge.InputTopic())
	}
	return client, bridge
}

func printResult(opts *RootOptions, w io.Writer, res game.Result) error {
	if opts.Format == "json" {
		return writeJSON(w, res)
	}
	if res.Outcome == "" {
		return nil
	}
	fmt.Fprintf(w, "%s: %s (session %s)\n", res.QuestID, res.Outcome, res.SessionID)
	for i, p := range res.Paths {
		fmt.Fprintf(w, "  %d. %s: %s, %d matched, %d mismatches, %d hints, %s\n",
			i+1, p.Name, p.State, p.Matched, p.Mismatches, p.Hints, p.Elapsed.Round(time.Second))
	}
	return nil
}
