package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AaronLay10/QuestBox/internal/api"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/game"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// parseLine reads one line of simulated input. Accepted forms:
//
//	{"device_type": "button", "value": "red"}
//	button red
//	rotary_encoder_number 7
//	hint
//
// A bare value is sent as a string, as the dials and buttons report it.
// Typed values need the JSON form.
func parseLine(line string) (input.Event, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return input.Event{}, false, nil
	}
	if strings.HasPrefix(line, "{") {
		ev, err := input.ParseEvent([]byte(line))
		return ev, err == nil, err
	}

	fields := strings.Fields(line)
	switch {
	case len(fields) == 1 && (fields[0] == game.ControlHint || fields[0] == game.ControlRepeat):
		return input.NewEvent(input.DeviceButton, fields[0], nil), true, nil
	case len(fields) == 2:
		return input.NewEvent(fields[0], fields[1], nil), true, nil
	default:
		return input.Event{}, false, fmt.Errorf("expected JSON, %q, or <device_type> <value>", game.ControlHint)
	}
}

// feedLines injects every parsed line of r until r ends or ctx is done.
// Reads block, so callers run it on its own goroutine.
func feedLines(ctx context.Context, r io.Reader, inj api.Injector, log *logging.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		ev, ok, err := parseLine(sc.Text())
		if err != nil {
			log.Warn("ignored simulated input", "line", sc.Text(), "error", err)
			events.Emit(events.LevelWarn, "device.error", "ignored simulated input", map[string]interface{}{
				"line":  sc.Text(),
				"error": err.Error(),
			})
			continue
		}
		if ok {
			inj.Inject(ev, "stdin")
		}
	}
}
