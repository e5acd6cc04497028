// Package hotkey implements the Hotkey Path (C10): a global key-chord
// listener that, on trigger, captures the screen and collects a typed
// instruction, producing a synthesised transcript artifact equivalent to a
// voice utterance. It runs independently of C1-C8 and must never block on
// (or be blocked by) ongoing voice capture.
package hotkey

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.design/x/hotkey"

	"github.com/michaelneale/goose-perception/internal/logger"
	"github.com/michaelneale/goose-perception/internal/screenshot"
)

// Config selects the trigger chord and scratch directory for screenshots.
type Config struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
	TempDir   string
}

// DefaultConfig approximates spec §4.9's "platform-meta + shift + g" with
// the most portable chord golang.design/x/hotkey exposes identically across
// darwin/windows/linux: Ctrl+Shift+G.
func DefaultConfig() Config {
	return Config{
		Modifiers: []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift},
		Key:       hotkey.KeyG,
		TempDir:   os.TempDir(),
	}
}

// Trigger is produced by a completed (not cancelled) hotkey activation.
type Trigger struct {
	ScreenshotPath string
	Instruction    string
}

// Listener owns the registered global hotkey and serialises trigger
// handling so overlapping chord presses cannot race.
type Listener struct {
	cfg     Config
	hk      *hotkey.Hotkey
	log     *logger.ContextLogger
	reader  *bufio.Reader
	mu      sync.Mutex
	onFired func(Trigger)
}

// New registers the global hotkey. onFired is invoked once per completed
// (non-cancelled) activation; it must return quickly (it is called from the
// listener's own goroutine).
func New(cfg Config, onFired func(Trigger), log *logger.ContextLogger) (*Listener, error) {
	hk := hotkey.New(cfg.Modifiers, cfg.Key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register hotkey: %w", err)
	}
	return &Listener{cfg: cfg, hk: hk, log: log, reader: bufio.NewReader(os.Stdin), onFired: onFired}, nil
}

// Run blocks, dispatching one handleTrigger per chord press, until ctx is
// cancelled.
func (l *Listener) Run(ctx context.Context) {
	defer l.hk.Unregister() //nolint:errcheck
	for {
		select {
		case <-l.hk.Keydown():
			l.handleTrigger()
		case <-ctx.Done():
			return
		}
	}
}

// handleTrigger captures the screen, prompts for an instruction on stdin,
// and invokes onFired unless the prompt is cancelled (empty input), in
// which case both the screenshot and any pending work are discarded.
func (l *Listener) handleTrigger() {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := screenshot.CaptureToTemp(l.cfg.TempDir)
	if err != nil {
		l.log.Warnf("hotkey screenshot failed: %v", err)
		return
	}

	fmt.Print("goose> describe what you want (empty to cancel): ")
	line, _ := l.reader.ReadString('\n')
	instruction := strings.TrimSpace(line)

	if instruction == "" {
		l.log.Infof("hotkey trigger cancelled, discarding screenshot %s", path)
		os.Remove(path)
		return
	}

	l.onFired(Trigger{ScreenshotPath: path, Instruction: instruction})
}
