// Package session implements the Session Controller (C8): a single-
// threaded state machine (Passive / Active / Dispatching) owning the
// rolling context buffer and the active utterance buffer. It is the sole
// mutator of both; no other goroutine may touch them.
package session

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/michaelneale/goose-perception/internal/audio"
	"github.com/michaelneale/goose-perception/internal/diagnostics"
	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/logger"
	"github.com/michaelneale/goose-perception/internal/signal"
	"github.com/michaelneale/goose-perception/internal/sink"
	"github.com/michaelneale/goose-perception/internal/transcribe"
	"github.com/michaelneale/goose-perception/internal/wake"
)

// State is one of the three controller states.
type State int

const (
	Passive State = iota
	Active
	Dispatching
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Dispatching:
		return "Dispatching"
	default:
		return "Passive"
	}
}

// Config tunes the controller's timing knobs.
type Config struct {
	ChunkDuration   time.Duration
	ContextSeconds  int
	SilenceSeconds  int
	Language        string
	DispatchTimeout time.Duration // default 2 * ChunkDuration
	Thresholds      signal.Thresholds
	Diag            *diagnostics.Bus // optional; nil disables diagnostic reporting
}

// contextLen returns N = ceil(ContextSeconds / ChunkDuration).
func (c Config) contextLen() int {
	return ceilDiv(c.ContextSeconds, c.ChunkDuration)
}

// silenceChunks returns ceil(SilenceSeconds / ChunkDuration).
func (c Config) silenceChunks() int {
	return ceilDiv(c.SilenceSeconds, c.ChunkDuration)
}

func ceilDiv(seconds int, chunkDuration time.Duration) int {
	chunkSeconds := chunkDuration.Seconds()
	if chunkSeconds <= 0 {
		return 1
	}
	return int(math.Ceil(float64(seconds) / chunkSeconds))
}

// entry pairs one chunk with its metrics and the two transcript tiers. The
// chunk itself is never mutated after it leaves C2 (spec §3 invariant); the
// accurate-transcript fields of an entry in the active session are filled in
// place when its C5 result arrives.
type entry struct {
	chunk              audio.Chunk
	metrics            signal.Metrics
	quickTranscript    string
	accurateTranscript string
	accuratePending    bool
}

type accurateResult struct {
	seq  uint64
	text string
	err  error
}

// activeSession holds the in-progress utterance state. Exists only while
// the controller is in Active or Dispatching.
type activeSession struct {
	id                  string
	entries             []entry // context-prefix snapshot + active chunks, in capture order
	trailingSilentCount int
	wakeConfidence      float64
	startedAt           time.Time
}

// Controller implements C8.
type Controller struct {
	cfg Config

	cheap    transcribe.Transcriber
	accurate transcribe.Transcriber
	wake     *wake.Detector
	sink     *sink.Sink
	log      *logger.ContextLogger

	state   State
	rolling []entry
	active  *activeSession

	accurateResults chan accurateResult
}

// New builds a Controller. cheap/accurate are the C4/C5 transcribers;
// wakeDetector is C6 (already constructed with its own Classifier); sink is
// C9.
func New(cfg Config, cheap, accurate transcribe.Transcriber, wakeDetector *wake.Detector, snk *sink.Sink, log *logger.ContextLogger) *Controller {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 2 * cfg.ChunkDuration
	}
	return &Controller{
		cfg:             cfg,
		cheap:           cheap,
		accurate:        accurate,
		wake:            wakeDetector,
		sink:            snk,
		log:             log,
		state:           Passive,
		accurateResults: make(chan accurateResult, 64),
	}
}

// State returns the controller's current state (for tests/diagnostics).
func (c *Controller) State() State { return c.state }

// Run drives the controller off chunks (in strict capture order, single
// producer) until chunks closes or ctx is cancelled. On shutdown any
// in-progress Active session is abandoned without dispatching, per spec §5.
func (c *Controller) Run(ctx context.Context, chunks <-chan audio.Chunk) {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				c.abandon("input closed")
				return
			}
			c.handleChunk(ctx, chunk)
		case res := <-c.accurateResults:
			c.handleAccurateResult(res)
		case <-ctx.Done():
			c.abandon("shutdown")
			return
		}
	}
}

// report forwards a non-fatal failure to the diagnostics bus, if configured.
func (c *Controller) report(kind perr.Kind, err error) {
	if c.cfg.Diag != nil {
		c.cfg.Diag.Report(kind, "session", err)
	}
}

func (c *Controller) abandon(reason string) {
	if c.active != nil {
		c.log.Infof("abandoning active session %s without dispatch: %s", c.active.id, reason)
		c.active = nil
	}
}

func (c *Controller) handleChunk(ctx context.Context, chunk audio.Chunk) {
	metrics := signal.Classify(chunk.Samples, c.cfg.Thresholds)
	e := entry{chunk: chunk, metrics: metrics}

	switch c.state {
	case Passive:
		c.handlePassive(ctx, e)
	case Active:
		c.handleActive(ctx, e)
	default:
		// Dispatching is resolved synchronously inside dispatch(); the
		// controller never re-enters the loop while a dispatch is pending.
		c.handlePassive(ctx, e)
	}
}

// handlePassive implements spec §4.7's Passive transitions. The Signal
// Analyzer is the sole authoritative TooWeak filter (spec §9's first open
// question, resolved in SPEC_FULL.md): a TooWeak chunk is dropped here with
// no secondary threshold re-check.
func (c *Controller) handlePassive(ctx context.Context, e entry) {
	if e.metrics.Class == signal.TooWeak {
		return
	}

	text, err := c.cheap.Transcribe(ctx, e.chunk.Samples, c.cfg.Language)
	if err != nil {
		c.log.Warnf("cheap transcription failed: %v", err)
		c.report(perr.TranscriptionError, err)
		text = ""
	}
	e.quickTranscript = text

	c.pushContext(e)

	result := c.wake.Detect(text)
	if result.Path == wake.NoMatch {
		return
	}

	c.recordActivation(result)

	if !result.Accepted {
		return
	}

	c.startActiveSession(e, result.Confidence)
}

func (c *Controller) startActiveSession(wakeChunk entry, confidence float64) {
	snapshot := append([]entry(nil), c.rolling...)
	c.active = &activeSession{
		id:             uuid.NewString(),
		entries:        snapshot,
		wakeConfidence: confidence,
		startedAt:      time.Now(),
	}
	c.state = Active
	c.startAccurate(wakeChunk)
}

// handleActive implements spec §4.7's Active transitions.
func (c *Controller) handleActive(ctx context.Context, e entry) {
	e.accuratePending = true
	c.active.entries = append(c.active.entries, e)
	c.startAccurate(e)

	if e.metrics.Class == signal.Silence || e.metrics.Class == signal.TooWeak {
		c.active.trailingSilentCount++
	} else {
		c.active.trailingSilentCount = 0
	}

	if c.active.trailingSilentCount >= c.cfg.silenceChunks() {
		c.state = Dispatching
		c.dispatch(ctx)
	}
}

// startAccurate launches C5 on e's samples in its own goroutine, reporting
// back on the bounded accurateResults channel tagged by chunk sequence ID
// so the controller slots the result into ActiveUtterance by identity, not
// by a shared mutable slot.
func (c *Controller) startAccurate(e entry) {
	seq := e.chunk.SequenceID
	samples := e.chunk.Samples
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DispatchTimeout)
		defer cancel()
		text, err := c.accurate.Transcribe(ctx, samples, c.cfg.Language)
		select {
		case c.accurateResults <- accurateResult{seq: seq, text: text, err: err}:
		default:
			c.log.Warnf("accurate result channel full, dropping result for chunk %d", seq)
		}
	}()
}

func (c *Controller) handleAccurateResult(res accurateResult) {
	if c.active == nil {
		return
	}
	for i := range c.active.entries {
		if c.active.entries[i].chunk.SequenceID != res.seq {
			continue
		}
		en := &c.active.entries[i]
		en.accuratePending = false
		if res.err != nil {
			if !perr.Is(res.err, perr.TranscriptionError) {
				c.log.Warnf("accurate transcription error for chunk %d: %v", res.seq, res.err)
			}
			c.report(perr.TranscriptionError, res.err)
			en.accurateTranscript = ""
		} else {
			en.accurateTranscript = res.text
		}

		// Wake-chaining: a wake accepted on the completed C5 transcript
		// resets trailing silence rather than starting a new session.
		if en.accurateTranscript != "" {
			result := c.wake.Detect(en.accurateTranscript)
			if result.Path != wake.NoMatch {
				c.recordActivation(result)
			}
			if result.Accepted && c.active != nil {
				c.active.trailingSilentCount = 0
			}
		}
		return
	}
}

// dispatch implements spec §4.7's Dispatching state: wait (bounded) for
// outstanding per-chunk C5 results, concatenate all samples in capture
// order, re-transcribe the whole buffer for the authoritative final
// transcript, and hand the result to C9.
func (c *Controller) dispatch(ctx context.Context) {
	c.waitForPending(c.cfg.DispatchTimeout)

	active := c.active
	allSamples := concatSamples(active.entries)

	finalCtx, cancel := context.WithTimeout(context.Background(), c.cfg.DispatchTimeout)
	finalText, err := c.accurate.Transcribe(finalCtx, allSamples, c.cfg.Language)
	cancel()
	if err != nil {
		c.log.Warnf("final utterance transcription failed, using best-effort per-chunk text: %v", err)
		c.report(perr.TranscriptionError, err)
		finalText = concatQuickFallback(active.entries)
	}

	_, writeErr := c.sink.WriteUtterance(sink.Utterance{
		Samples:        allSamples,
		Transcript:     finalText,
		Origin:         sink.Voice,
		Timestamp:      time.Now(),
		WakeConfidence: active.wakeConfidence,
	})
	if writeErr != nil {
		c.log.Errorf("write utterance artifact: %v", writeErr)
	}

	c.active = nil
	c.state = Passive
}

// waitForPending drains accurateResults until every entry in the active
// session has resolved or deadline elapses; whatever is available at
// deadline is used (spec §5).
func (c *Controller) waitForPending(deadline time.Duration) {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for c.hasPending() {
		select {
		case res := <-c.accurateResults:
			c.handleAccurateResult(res)
		case <-timer.C:
			return
		}
	}
}

func (c *Controller) hasPending() bool {
	if c.active == nil {
		return false
	}
	for _, e := range c.active.entries {
		if e.accuratePending {
			return true
		}
	}
	return false
}

// pushContext appends e to the rolling context, evicting the oldest entry
// once length exceeds N.
func (c *Controller) pushContext(e entry) {
	c.rolling = append(c.rolling, e)
	n := c.cfg.contextLen()
	if len(c.rolling) > n {
		c.rolling = c.rolling[len(c.rolling)-n:]
	}
}

func (c *Controller) recordActivation(result wake.Result) {
	if c.sink == nil {
		return
	}
	if err := c.sink.WriteActivation(sink.ActivationRecord{
		Timestamp:  time.Now(),
		Confidence: result.Confidence,
		Triggered:  result.Accepted,
		Transcript: result.RawText,
	}); err != nil {
		c.log.Warnf("write activation record: %v", err)
	}
}

func concatSamples(entries []entry) []float32 {
	total := 0
	for _, e := range entries {
		total += len(e.chunk.Samples)
	}
	out := make([]float32, 0, total)
	for _, e := range entries {
		out = append(out, e.chunk.Samples...)
	}
	return out
}

func concatQuickFallback(entries []entry) string {
	var out string
	for _, e := range entries {
		text := e.accurateTranscript
		if text == "" {
			text = e.quickTranscript
		}
		if text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += text
	}
	return out
}
