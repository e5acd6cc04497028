package transcribe

import (
	"context"
	"fmt"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/logger"
)

// WhisperConfig configures one tier's model.
type WhisperConfig struct {
	ModelPath string
	Language  string // "" or "auto" lets whisper detect
	Threads   uint
	BeamSize  int
}

// WhisperTranscriber wraps a single whisper.cpp model instance. Two
// instances (different ModelPath/Threads) back the cheap and accurate
// tiers; both satisfy Transcriber identically.
type WhisperTranscriber struct {
	model whisper.Model
	ctx   whisper.Context
	mu    sync.Mutex
	log   *logger.ContextLogger
}

// NewWhisperTranscriber loads the model at cfg.ModelPath and configures a
// reusable inference context.
func NewWhisperTranscriber(cfg WhisperConfig, log *logger.ContextLogger) (*WhisperTranscriber, error) {
	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, perr.New(perr.ModelLoadError, "transcribe", fmt.Errorf("load model %s: %w", cfg.ModelPath, err))
	}

	wctx, err := model.NewContext()
	if err != nil {
		return nil, perr.New(perr.ModelLoadError, "transcribe", fmt.Errorf("new context: %w", err))
	}

	lang := cfg.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		log.Warnf("set language %q failed: %v", lang, err)
	}
	threads := cfg.Threads
	if threads == 0 {
		threads = 4
	}
	wctx.SetThreads(threads)
	wctx.SetTranslate(false)
	if cfg.BeamSize > 0 {
		wctx.SetBeamSize(cfg.BeamSize)
	}

	return &WhisperTranscriber{model: model, ctx: wctx, log: log}, nil
}

// Transcribe implements Transcriber. whisper.cpp contexts are not safe for
// concurrent Process calls, so each tier serialises through its own mutex;
// the two tiers run on independent instances and so never contend with each
// other. The mutex is released by the processing goroutine when Process
// returns, so a call that times out does not let the next call start while
// the abandoned Process is still running.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, lang string) (string, error) {
	w.mu.Lock()

	if lang != "" {
		if err := w.ctx.SetLanguage(lang); err != nil {
			w.log.Debugf("set language %q failed: %v", lang, err)
		}
	}

	done := make(chan error, 1)
	var segments []string
	go func() {
		defer w.mu.Unlock()
		done <- w.ctx.Process(samples, nil, func(seg whisper.Segment) {
			text := strings.TrimSpace(seg.Text)
			if text != "" {
				segments = append(segments, text)
			}
		}, nil)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", perr.New(perr.TranscriptionError, "transcribe", err)
		}
		return strings.Join(segments, " "), nil
	case <-ctx.Done():
		return "", perr.New(perr.TranscriptionError, "transcribe", ctx.Err())
	}
}

// Close is a no-op: the current whisper.cpp Go bindings manage the
// underlying model and context via GC, with no explicit release call.
func (w *WhisperTranscriber) Close() error {
	return nil
}

// ConvertPCMToFloat32 converts 16-bit PCM LE bytes to float32 samples in
// [-1,1]. Nothing in this repository calls it.
func ConvertPCMToFloat32(pcmData []byte) []float32 {
	n := len(pcmData) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcmData[i*2]) | uint16(pcmData[i*2+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}
