package actuators

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/AaronLay10/QuestBox/internal/logging"
)

// ErrInterrupted is returned by PlayAndWait when another clip or Stop cut
// the clip short.
var ErrInterrupted = errors.New("playback interrupted")

// Player starts clips. Implementations must make Stop on a finished
// playback harmless.
type Player interface {
	Start(file string) (Playback, error)
}

// Playback is one running clip.
type Playback interface {
	// Done is closed when the clip ends for any reason.
	Done() <-chan struct{}
	// Err is the playback result, valid after Done is closed.
	Err() error
	Stop()
}

// Audio plays one clip at a time. Starting a clip stops the current one.
type Audio struct {
	player Player
	log    *logging.Logger

	mu      sync.Mutex
	current *clip
}

type clip struct {
	pb          Playback
	interrupted bool
}

func NewAudio(p Player, log *logging.Logger) *Audio {
	return &Audio{player: p, log: log.With("component", "audio")}
}

func (a *Audio) start(file string) (*clip, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.interruptLocked()
	pb, err := a.player.Start(file)
	if err != nil {
		return nil, fmt.Errorf("failed to play %s: %w", file, err)
	}
	c := &clip{pb: pb}
	a.current = c
	go a.reap(c)
	return c, nil
}

func (a *Audio) interruptLocked() {
	if a.current != nil {
		a.current.interrupted = true
		a.current.pb.Stop()
		a.current = nil
	}
}

func (a *Audio) reap(c *clip) {
	<-c.pb.Done()
	a.mu.Lock()
	if a.current == c {
		a.current = nil
	}
	a.mu.Unlock()
}

// Play starts file and returns at once.
func (a *Audio) Play(file string) error {
	_, err := a.start(file)
	if err == nil {
		a.log.Debug("playing", "file", file)
	}
	return err
}

// PlayAndWait plays file and blocks until it finishes, ctx ends (the clip is
// then stopped) or another clip replaces it.
func (a *Audio) PlayAndWait(ctx context.Context, file string) error {
	c, err := a.start(file)
	if err != nil {
		return err
	}
	a.log.Debug("playing and waiting", "file", file)

	select {
	case <-c.pb.Done():
	case <-ctx.Done():
		a.mu.Lock()
		if a.current == c {
			a.current = nil
		}
		a.mu.Unlock()
		c.pb.Stop()
		<-c.pb.Done()
		return ctx.Err()
	}

	a.mu.Lock()
	interrupted := c.interrupted
	a.mu.Unlock()
	if interrupted {
		return ErrInterrupted
	}
	return c.pb.Err()
}

// Active reports whether a clip is running.
func (a *Audio) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// SetEffect plays params["file"]. With "wait": true it blocks the caller
// until the clip ends.
func (a *Audio) SetEffect(ctx context.Context, params map[string]any) error {
	file, err := stringParam(params, "file", "")
	if err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("sound command needs a file")
	}
	if wait, _ := params["wait"].(bool); wait {
		err := a.PlayAndWait(ctx, file)
		if errors.Is(err, ErrInterrupted) {
			return nil
		}
		return err
	}
	return a.Play(file)
}

// Stop silences the current clip.
func (a *Audio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interruptLocked()
}

// ExecPlayer plays clips with an external command such as mpg123 or aplay.
type ExecPlayer struct {
	Command string
	Args    []string
}

func (p ExecPlayer) Start(file string) (Playback, error) {
	args := append(append([]string(nil), p.Args...), file)
	cmd := exec.Command(p.Command, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	pb := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		pb.err = cmd.Wait()
		close(pb.done)
	}()
	return pb, nil
}

type execPlayback struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

func (p *execPlayback) Done() <-chan struct{} { return p.done }

func (p *execPlayback) Err() error { return p.err }

func (p *execPlayback) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
		default:
			_ = p.cmd.Process.Kill()
		}
	})
}

// SilentPlayer finishes every clip immediately. Used when audio is disabled.
type SilentPlayer struct{}

func (SilentPlayer) Start(string) (Playback, error) {
	done := make(chan struct{})
	close(done)
	return silentPlayback{done: done}, nil
}

type silentPlayback struct{ done chan struct{} }

func (s silentPlayback) Done() <-chan struct{} { return s.done }
func (silentPlayback) Err() error              { return nil }
func (silentPlayback) Stop()                   {}
