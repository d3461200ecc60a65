package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/QuestBox/internal/assets"
	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/output"
	"github.com/AaronLay10/QuestBox/internal/steps"
)

// DefaultPollTimeout is how long the engine waits for input before it
// looks at the deadline again.
const DefaultPollTimeout = 100 * time.Millisecond

// Narrator plays a clip and blocks until it ends or ctx is done.
type Narrator interface {
	PlayAndWait(ctx context.Context, file string) error
}

// CommandSink accepts actuator commands without blocking.
type CommandSink interface {
	Send(cmd output.Command) bool
}

// AssetResolver finds audio clips. A missing clip is not an error.
type AssetResolver interface {
	Resolve(category, pathName, questID string) (string, bool)
	Cue(name string) (string, bool)
}

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	PollTimeout time.Duration
	Cues        config.CuesConfig
}

// Cues are the feedback commands sent on match, mismatch, path failure and
// victory.
type Cues struct {
	Match    []output.Command
	Mismatch []output.Command
	Error    []output.Command
	Victory  []output.Command
}

// CompileCues validates cue steps from box.yaml.
func CompileCues(c config.CuesConfig) (Cues, error) {
	var cues Cues
	for _, set := range []struct {
		name string
		raw  []map[string]any
		dst  *[]output.Command
	}{
		{"match", c.Match, &cues.Match},
		{"mismatch", c.Mismatch, &cues.Mismatch},
		{"error", c.Error, &cues.Error},
		{"victory", c.Victory, &cues.Victory},
	} {
		for i, raw := range set.raw {
			st, err := steps.Normalize(raw)
			if err != nil {
				return Cues{}, fmt.Errorf("cues.%s[%d]: %w", set.name, i, err)
			}
			if st.Kind != steps.KindActuator {
				return Cues{}, fmt.Errorf("cues.%s[%d]: cues must be actuator steps", set.name, i)
			}
			*set.dst = append(*set.dst, output.Command{Class: st.Type, Params: st.Params})
		}
	}
	return cues, nil
}

// PathResult is the record of one path attempt.
type PathResult struct {
	Name       string        `json:"path_name"`
	State      PathState     `json:"state"`
	Matched    int           `json:"matched"`
	Mismatches int           `json:"mismatches"`
	Hints      int           `json:"hints"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the record of one quest run.
type Result struct {
	SessionID string       `json:"session_id"`
	QuestID   string       `json:"quest_id"`
	Outcome   Outcome      `json:"outcome"`
	Paths     []PathResult `json:"paths"`
}

// Status is a point-in-time view of a running quest.
type Status struct {
	SessionID string        `json:"session_id,omitempty"`
	QuestID   string        `json:"quest_id"`
	Running   bool          `json:"running"`
	Path      string        `json:"path,omitempty"`
	PathIndex int           `json:"path_index"`
	State     PathState     `json:"state,omitempty"`
	Step      int           `json:"step"`
	Steps     int           `json:"steps"`
	Remaining time.Duration `json:"remaining"`
}

// Engine runs one quest against the input queue. Run is not safe to call
// concurrently; Status may be called from any goroutine.
type Engine struct {
	quest       *Quest
	src         <-chan input.Event
	narrator    Narrator
	sink        CommandSink
	assets      AssetResolver
	log         *logging.Logger
	pollTimeout time.Duration
	cues        Cues

	sessionID string

	mu     sync.Mutex
	status Status
}

func NewEngine(q *Quest, src <-chan input.Event, narrator Narrator, sink CommandSink, resolver AssetResolver, log *logging.Logger, opts Options) (*Engine, error) {
	cues, err := CompileCues(opts.Cues)
	if err != nil {
		return nil, err
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	return &Engine{
		quest:       q,
		src:         src,
		narrator:    narrator,
		sink:        sink,
		assets:      resolver,
		log:         log.With("component", "game", "quest", q.ID),
		pollTimeout: opts.PollTimeout,
		cues:        cues,
		status:      Status{QuestID: q.ID},
	}, nil
}

// Status returns the current progress.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(fn func(s *Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
}

// Run plays the quest to the end. Every solution step is validated before
// anything is narrated. A cancelled ctx aborts the run and returns its
// error together with the partial result.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	res := Result{QuestID: e.quest.ID}

	solutions := make([][]steps.SensorStep, len(e.quest.Paths))
	for i, p := range e.quest.Paths {
		seq, err := p.Solution()
		if err != nil {
			e.emit(events.LevelError, "step.invalid", err.Error(), map[string]interface{}{"path": p.Name})
			res.Outcome = OutcomeAborted
			return res, err
		}
		solutions[i] = seq
	}

	id, err := uuid.NewV7()
	if err != nil {
		return res, fmt.Errorf("failed to create session id: %w", err)
	}
	e.sessionID = id.String()
	res.SessionID = e.sessionID
	e.setStatus(func(s *Status) {
		*s = Status{SessionID: e.sessionID, QuestID: e.quest.ID, Running: true}
	})
	defer e.setStatus(func(s *Status) { s.Running = false; s.Remaining = 0 })

	e.emit(events.LevelInfo, "quest.started", e.quest.Title, map[string]interface{}{
		"title": e.quest.Title,
		"paths": len(e.quest.Paths),
	})
	e.log.Info("quest started", "session_id", e.sessionID, "title", e.quest.Title)

	if err := e.narrate(ctx, assets.StartingDescription, "", e.quest.StartingDescription); err != nil {
		return e.abort(res, err)
	}

	for i, p := range e.quest.Paths {
		pr, err := e.runPath(ctx, i, p, solutions[i])
		res.Paths = append(res.Paths, pr)
		if err != nil {
			return e.abort(res, err)
		}
		if pr.State.Failed() {
			res.Outcome = OutcomeLost
			e.emit(events.LevelInfo, "quest.lost", "", map[string]interface{}{"path": p.Name, "state": string(pr.State)})
			e.log.Info("quest lost", "path", p.Name, "state", pr.State)
			return res, nil
		}
	}

	e.sendAll(e.cues.Victory)
	if file, ok := e.assets.Cue("victory"); ok {
		e.send(soundCommand(file))
	}
	res.Outcome = OutcomeWon
	e.emit(events.LevelInfo, "quest.won", "", map[string]interface{}{"paths": len(res.Paths)})
	e.log.Info("quest won", "session_id", e.sessionID)
	return res, nil
}

func (e *Engine) abort(res Result, err error) (Result, error) {
	res.Outcome = OutcomeAborted
	e.emit(events.LevelWarn, "quest.aborted", err.Error(), nil)
	e.log.Warn("quest aborted", "error", err)
	return res, err
}

func (e *Engine) runPath(ctx context.Context, index int, p Path, seq []steps.SensorStep) (PathResult, error) {
	pr := PathResult{Name: p.Name, State: PathNarrating}

	e.setStatus(func(s *Status) {
		s.Path, s.PathIndex, s.State = p.Name, index, PathNarrating
		s.Step, s.Steps, s.Remaining = 0, len(seq), p.Limit()
	})
	e.emit(events.LevelInfo, "path.started", p.Name, map[string]interface{}{
		"path":       p.Name,
		"index":      index,
		"steps":      len(seq),
		"time_limit": p.TimeLimit,
	})

	if err := e.narrate(ctx, assets.Description, p.Name, p.Description); err != nil {
		return pr, err
	}
	e.sendEffects(p)

	// Presses made before the clock starts, narration included, do not count.
	drained := e.drain()
	dl := StartDeadline(p.Limit())
	defer dl.Cancel()
	e.emit(events.LevelInfo, "timer.started", "", map[string]interface{}{
		"path":       p.Name,
		"time_limit": p.TimeLimit,
		"drained":    drained,
	})

	pr.State = PathAwaiting
	e.setStatus(func(s *Status) { s.State = PathAwaiting })

	src := e.src
	for pr.Matched < len(seq) {
		if dl.Fired() {
			return e.fail(ctx, p, pr, dl, PathTimedOut)
		}
		// No more input can arrive.
		if src == nil {
			return e.fail(ctx, p, pr, dl, PathFailed)
		}

		select {
		case <-ctx.Done():
			pr.Elapsed = dl.Elapsed()
			return pr, ctx.Err()
		case <-dl.Expired():
		case ev, ok := <-src:
			if !ok {
				e.log.Warn("input source closed", "path", p.Name)
				src = nil
				continue
			}
			if dl.Fired() {
				e.log.Debug("input after deadline discarded", "device_type", ev.DeviceType, "value", ev.Value)
				continue
			}
			e.handle(p, seq, &pr, ev)
			e.setStatus(func(s *Status) { s.Step = pr.Matched; s.Remaining = dl.Remaining() })
		case <-time.After(e.pollTimeout):
			e.setStatus(func(s *Status) { s.Remaining = dl.Remaining() })
		}
	}

	dl.Cancel()
	pr.State = PathSucceeded
	pr.Elapsed = dl.Elapsed()
	e.setStatus(func(s *Status) { s.State = PathSucceeded; s.Remaining = 0 })
	e.emit(events.LevelInfo, "timer.cancelled", "", map[string]interface{}{"path": p.Name})
	e.emit(events.LevelInfo, "path.succeeded", p.Name, map[string]interface{}{
		"path":       p.Name,
		"elapsed_ms": pr.Elapsed.Milliseconds(),
		"mismatches": pr.Mismatches,
		"hints":      pr.Hints,
	})
	e.log.Info("path succeeded", "path", p.Name, "elapsed", pr.Elapsed)
	return pr, nil
}

func (e *Engine) handle(p Path, seq []steps.SensorStep, pr *PathResult, ev input.Event) {
	if IsControl(ev) {
		pr.Hints++
		e.hint(p)
		return
	}

	expected := seq[pr.Matched]
	fields := map[string]interface{}{
		"path":        p.Name,
		"step":        pr.Matched,
		"expected":    expected.Type,
		"want":        expected.Value(),
		"device_type": ev.DeviceType,
		"value":       ev.Value,
	}
	if Matches(expected, ev) {
		pr.Matched++
		e.emit(events.LevelInfo, "step.matched", "", fields)
		e.sendAll(e.cues.Match)
		return
	}
	pr.Mismatches++
	e.emit(events.LevelInfo, "step.mismatched", "", fields)
	e.sendAll(e.cues.Mismatch)
}

// fail ends a path that ran out of time or input: failure narration first,
// then the error cue.
func (e *Engine) fail(ctx context.Context, p Path, pr PathResult, dl *Deadline, state PathState) (PathResult, error) {
	pr.State = state
	pr.Elapsed = dl.Elapsed()
	e.setStatus(func(s *Status) { s.State = state; s.Remaining = 0 })

	fields := map[string]interface{}{
		"path":    p.Name,
		"matched": pr.Matched,
		"steps":   len(p.SolutionSequence),
	}
	if state == PathTimedOut {
		e.emit(events.LevelInfo, "timer.expired", "", map[string]interface{}{"path": p.Name})
		e.emit(events.LevelInfo, "path.timed_out", p.Name, fields)
	} else {
		e.emit(events.LevelWarn, "path.failed", p.Name, fields)
	}
	e.log.Info("path failed", "path", p.Name, "state", state, "matched", pr.Matched)

	if err := e.narrate(ctx, assets.DeathText, p.Name, p.DeathText); err != nil {
		return pr, err
	}
	e.sendAll(e.cues.Error)
	return pr, nil
}

func (e *Engine) hint(p Path) {
	file, ok := e.assets.Resolve(assets.Hint, p.Name, e.quest.ID)
	e.emit(events.LevelInfo, "hint.requested", p.Hint, map[string]interface{}{"path": p.Name, "file": file})
	if !ok {
		e.log.Info("hint", "path", p.Name, "text", p.Hint)
		return
	}
	e.send(soundCommand(file))
}

// narrate plays a clip to the end. A missing clip is logged with its text
// and skipped. Only cancellation is returned as an error.
func (e *Engine) narrate(ctx context.Context, category, pathName, text string) error {
	file, ok := e.assets.Resolve(category, pathName, e.quest.ID)
	fields := map[string]interface{}{"category": category, "path": pathName}
	if !ok {
		e.log.Info("narration", "category", category, "path", pathName, "text", text)
		e.emit(events.LevelInfo, "narration.missing", text, fields)
		return ctx.Err()
	}

	err := e.narrator.PlayAndWait(ctx, file)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		e.log.Warn("narration failed", "file", file, "error", err)
		return nil
	}
	fields["file"] = file
	e.emit(events.LevelInfo, "narration.played", "", fields)
	return nil
}

func (e *Engine) sendEffects(p Path) {
	for i, raw := range p.Effects {
		st, err := steps.Normalize(raw)
		if err == nil && st.Kind != steps.KindActuator {
			err = fmt.Errorf("effects must be actuator steps")
		}
		if err != nil {
			e.emit(events.LevelWarn, "step.invalid", err.Error(), map[string]interface{}{"path": p.Name, "effect": i})
			e.log.Warn("invalid effect skipped", "path", p.Name, "effect", i, "error", err)
			continue
		}
		e.send(output.Command{Class: st.Type, Params: st.Params})
	}
}

func (e *Engine) sendAll(cmds []output.Command) {
	for _, c := range cmds {
		e.send(c)
	}
}

func (e *Engine) send(cmd output.Command) {
	if !e.sink.Send(cmd) {
		e.log.Warn("command not queued", "class", cmd.Class)
	}
}

func (e *Engine) drain() int {
	n := 0
	for {
		select {
		case _, ok := <-e.src:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (e *Engine) emit(level, name, msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{}, 2)
	}
	fields["quest"] = e.quest.ID
	if e.sessionID != "" {
		fields["session_id"] = e.sessionID
	}
	if _, err := events.Emit(level, name, msg, fields); err != nil {
		e.log.Warn("failed to emit event", "event", name, "error", err)
	}
}

func soundCommand(file string) output.Command {
	return output.Command{Class: steps.ClassSound, Params: map[string]any{"file": file}}
}
