// Command goose-listen runs the real-time voice ingress pipeline: audio
// capture, chunking, signal analysis, wake detection, session control, and
// transcript dispatch (C1-C9), plus an independent global-hotkey ingress
// (C10).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/michaelneale/goose-perception/internal/audio"
	"github.com/michaelneale/goose-perception/internal/classify"
	"github.com/michaelneale/goose-perception/internal/config"
	"github.com/michaelneale/goose-perception/internal/diagnostics"
	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/hotkey"
	"github.com/michaelneale/goose-perception/internal/logger"
	"github.com/michaelneale/goose-perception/internal/pos"
	"github.com/michaelneale/goose-perception/internal/session"
	"github.com/michaelneale/goose-perception/internal/signal"
	"github.com/michaelneale/goose-perception/internal/sink"
	"github.com/michaelneale/goose-perception/internal/transcribe"
	"github.com/michaelneale/goose-perception/internal/wake"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	fs := flag.NewFlagSet("goose-listen", flag.ContinueOnError)
	config.BindFlags(fs, &cfg)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	log := logger.NewWithConfig(logger.Config{
		Level:  boolToLevel(cfg.Debug),
		Format: logger.ParseFormat(cfg.LogFormat),
	})
	mainLog := log.With("main")

	if cfg.ListDevices {
		return listDevices(mainLog)
	}

	if err := cfg.Validate(); err != nil {
		mainLog.Errorf("invalid configuration: %v", err)
		return 1
	}

	if cfg.DumpConfig != "" {
		if err := cfg.DumpYAML(cfg.DumpConfig); err != nil {
			mainLog.Warnf("failed to write config dump: %v", err)
		}
	}

	if cfg.Calibrate {
		return runCalibration(cfg, log)
	}

	return runPipeline(cfg, log)
}

func boolToLevel(debug bool) logger.Level {
	if debug {
		return logger.Debug
	}
	return logger.Info
}

func listDevices(log *logger.ContextLogger) int {
	names, err := audio.ListDevices(log)
	if err != nil {
		log.Errorf("list devices: %v", err)
		return 2
	}
	for i, n := range names {
		fmt.Printf("[%d] %s\n", i, n)
	}
	return 0
}

func runPipeline(cfg config.Config, log *logger.Logger) int {
	mainLog := log.With("main")

	thresholds := signal.Thresholds{
		VeryWeak:      0.003,
		Silence:       cfg.SilenceThreshold,
		Distant:       0.005,
		Speech:        cfg.SpeechThreshold,
		Close:         0.02,
		MaxNoiseRatio: cfg.NoiseRatio,
		SampleRate:    audio.SampleRate,
	}

	cheap, accurate, err := buildTranscribers(cfg, log)
	if err != nil {
		mainLog.Errorf("model load failed: %v", err)
		return 3
	}

	classifier := buildClassifier(cfg, log.With("classify"))

	wakeDetector := wake.New(wake.Config{
		Words:               []string{"goose", "gus"},
		Phrases:             []string{"hey goose", "hey gus"},
		FuzzyThreshold:      cfg.FuzzyThreshold,
		ClassifierThreshold: cfg.ClassifierThreshold,
	}, classifier, log.With("wake"))

	var tagger pos.Tagger = pos.HeuristicTagger{}

	agent := func(transcriptPath string) {
		mainLog.Infof("dispatching transcript to downstream agent: %s", transcriptPath)
		// The downstream agent is an external collaborator (spec §1); only
		// the call boundary is specified. Invocation here is a log line
		// standing in for a real process/IPC call.
	}

	snk, err := sink.New(cfg.DataDir, cfg.RecordingsDir, tagger, agent, log.With("sink"))
	if err != nil {
		mainLog.Errorf("sink init failed: %v", err)
		return 1
	}
	_ = snk.LogActivity("pipeline starting")

	capturer, err := audio.New(audio.Config{DeviceIndex: cfg.Device, Channels: cfg.Channels, ChannelCapacity: 64}, log.With("audio"))
	if err != nil {
		mainLog.Errorf("audio init failed: %v", err)
		return 2
	}

	diagBus := diagnostics.New(64, log.With("diagnostics"))

	controller := session.New(session.Config{
		ChunkDuration:  cfg.ChunkDuration(),
		ContextSeconds: cfg.ContextSeconds,
		SilenceSeconds: cfg.SilenceSeconds,
		Language:       cfg.Language,
		Thresholds:     thresholds,
		Diag:           diagBus,
	}, cheap, accurate, wakeDetector, snk, log.With("session"))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		mainLog.Info("shutdown signal received")
		cancel()
	}()

	if err := capturer.Start(); err != nil {
		mainLog.Errorf("failed to start capture: %v", err)
		return 2
	}

	chunks := make(chan audio.Chunk, 64)
	framer := audio.NewFramer(audio.SampleRate, cfg.ChunkDuration())

	var denoiser audio.Denoiser
	if cfg.Denoise {
		denoiser, err = audio.NewDenoiser(log.With("denoise"))
		if err != nil {
			mainLog.Warnf("denoiser init failed, proceeding without pre-filtering: %v", err)
			denoiser = nil
		}
	}

	var wg sync.WaitGroup
	var shutdownErrs *multierror.Error
	var errMu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(chunks)
		if denoiser != nil {
			defer denoiser.Close() //nolint:errcheck
		}
		for {
			select {
			case buf, ok := <-capturer.Buffers():
				if !ok {
					return
				}
				if denoiser != nil {
					if filtered, err := denoiser.Process(buf.Samples); err != nil {
						mainLog.Warnf("denoise failed, using raw samples: %v", err)
					} else {
						buf.Samples = filtered
					}
				}
				for _, c := range framer.Push(buf) {
					select {
					case chunks <- c:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		controller.Run(ctx, chunks)
	}()

	diagLog := log.With("diagnostics")
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev, ok := <-diagBus.Events():
				if !ok {
					return
				}
				diagLog.WithFields(map[string]interface{}{"kind": ev.Kind.String(), "component": ev.Component}).Warnf("diagnostic event: %v", ev.Err)
			case <-ctx.Done():
				return
			}
		}
	}()

	hk, err := hotkey.New(hotkey.DefaultConfig(), func(t hotkey.Trigger) {
		handleHotkeyTrigger(snk, t, log.With("hotkey"))
	}, log.With("hotkey"))
	if err != nil {
		mainLog.Warnf("hotkey registration failed, screen-capture path disabled: %v", err)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hk.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	if err := capturer.Stop(); err != nil {
		errMu.Lock()
		shutdownErrs = multierror.Append(shutdownErrs, err)
		errMu.Unlock()
	}
	if err := capturer.Close(); err != nil {
		errMu.Lock()
		shutdownErrs = multierror.Append(shutdownErrs, err)
		errMu.Unlock()
	}

	_ = snk.LogActivity("pipeline stopped")

	if shutdownErrs.ErrorOrNil() != nil {
		mainLog.Errorf("errors during shutdown: %v", shutdownErrs)
	}

	mainLog.Info("shutdown complete")
	return 0
}

func handleHotkeyTrigger(snk *sink.Sink, t hotkey.Trigger, log *logger.ContextLogger) {
	body := fmt.Sprintf("Screenshot: %s\nInstruction: %s\n", t.ScreenshotPath, t.Instruction)
	_, err := snk.WriteUtterance(sink.Utterance{
		Transcript:     body,
		Origin:         sink.Screen,
		Timestamp:      time.Now(),
		Instruction:    t.Instruction,
		ScreenshotPath: t.ScreenshotPath,
	})
	if err != nil {
		log.Errorf("write hotkey artifact: %v", err)
	}
}

func buildTranscribers(cfg config.Config, log *logger.Logger) (transcribe.Transcriber, transcribe.Transcriber, error) {
	if cfg.CheapModelPath == "" {
		return nil, nil, perr.New(perr.ModelLoadError, "transcribe", fmt.Errorf("cheap-model-path is required"))
	}
	cheap, err := transcribe.NewWhisperTranscriber(transcribe.WhisperConfig{
		ModelPath: cfg.CheapModelPath,
		Language:  cfg.Language,
		Threads:   2,
	}, log.With("transcribe-cheap"))
	if err != nil {
		return nil, nil, err
	}

	if cfg.AccurateModelPath == "" {
		// spec §7: Accurate-ASR missing degrades to using cheap transcripts
		// in Active state, rather than being fatal.
		log.With("transcribe").Warnf("accurate-model-path not set, degrading to the cheap model for Active-state transcription")
		return cheap, cheap, nil
	}
	accurate, err := transcribe.NewWhisperTranscriber(transcribe.WhisperConfig{
		ModelPath: cfg.AccurateModelPath,
		Language:  cfg.Language,
		Threads:   4,
		BeamSize:  5,
	}, log.With("transcribe-accurate"))
	if err != nil {
		log.With("transcribe").Warnf("accurate model load failed, degrading to cheap model: %v", err)
		return cheap, cheap, nil
	}
	return cheap, accurate, nil
}

func buildClassifier(cfg config.Config, log *logger.ContextLogger) classify.Classifier {
	if cfg.OpenAIAPIKey == "" {
		log.Info("no openai-api-key set, using rule-based address classifier")
		return classify.RuleBasedClassifier{}
	}
	c, err := classify.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel, log)
	if err != nil {
		log.Warnf("openai classifier init failed, falling back to rule-based: %v", err)
		return classify.RuleBasedClassifier{}
	}
	return c
}
