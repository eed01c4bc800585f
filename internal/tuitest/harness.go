// Package tuitest runs a built TUI binary inside a pseudo terminal, replays a
// scripted sequence of keys and mouse clicks, and hands back what the
// program drew.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
	pollInterval   = 20 * time.Millisecond
)

// Step is one scripted interaction. The harness sleeps for Delay, then waits
// until WaitFor shows up in the output, then writes Input. Any field may be
// left empty.
type Step struct {
	Delay   time.Duration
	WaitFor string
	Input   []byte
}

// Config configures how the harness spawns and drives the program.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

// Recording is the raw terminal stream plus the frames replayed from it.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Run starts cfg.Command in a PTY of the configured size, plays the script
// and waits for the program to exit. The whole run is bounded by
// cfg.Timeout.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = cfg.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	sess, err := start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	began := time.Now()
	if err := sess.play(ctx, cfg.Steps); err != nil {
		return nil, err
	}
	if err := sess.wait(ctx, cfg); err != nil {
		return nil, err
	}
	raw := sess.drain()
	return &Recording{
		Raw:      raw,
		Frames:   replay(raw, cfg.Width, cfg.Height),
		Duration: time.Since(began),
	}, nil
}

type session struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	output *syncBuffer
	done   chan struct{}
}

func start(ctx context.Context, cfg Config) (*session, error) {
	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	s := &session{cmd: cmd, ptmx: ptmx, output: &syncBuffer{}, done: make(chan struct{})}
	go s.pump()
	return s, nil
}

// pump copies the PTY into the output buffer and answers terminal queries
// until the PTY closes.
func (s *session) pump() {
	defer close(s.done)
	responder := newTerminalResponder(s.ptmx)
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			responder.Process(buf[:n])
			s.output.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *session) play(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: step %d: %w", i, ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if step.WaitFor != "" {
			if err := s.waitFor(ctx, step.WaitFor); err != nil {
				return fmt.Errorf("tuitest: step %d: %w", i, err)
			}
		}
		if len(step.Input) > 0 {
			if _, err := s.ptmx.Write(step.Input); err != nil {
				return fmt.Errorf("tuitest: step %d: write input: %w", i, err)
			}
		}
	}
	return nil
}

func (s *session) waitFor(ctx context.Context, text string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if strings.Contains(stripANSI(string(s.output.Bytes())), text) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%q never appeared: %w", text, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *session) wait(ctx context.Context, cfg Config) error {
	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	case err := <-exited:
		if err == nil || exitAllowed(err, cfg) {
			return nil
		}
		return fmt.Errorf("tuitest: program exited with error: %w", err)
	}
}

func exitAllowed(err error, cfg Config) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		for _, code := range cfg.AllowedExitCodes {
			if exitErr.ExitCode() == code {
				return true
			}
		}
	}
	return cfg.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt")
}

// drain closes the PTY so the pump sees EOF, then returns the output.
func (s *session) drain() []byte {
	_ = s.ptmx.Close()
	<-s.done
	return s.output.Bytes()
}

func (s *session) close() {
	_ = s.ptmx.Close()
}

// syncBuffer lets the script poll the output while the pump appends.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

var (
	// KeyEnter sends a carriage return.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC interrupts the program.
	KeyCtrlC = []byte{3}
	// KeyEsc dismisses the balloon, then the selection, then the panel.
	KeyEsc = []byte{27}
)

// Click encodes a left button press and release at the zero based cell
// (x, y) using SGR mouse reporting.
func Click(x, y int) []byte {
	return []byte(fmt.Sprintf("\x1b[<0;%d;%dM\x1b[<0;%d;%dm", x+1, y+1, x+1, y+1))
}
