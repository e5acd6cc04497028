// Package config defines the pipeline's runtime configuration, bound
// directly from CLI flags (config-file loading is explicitly out of scope
// per spec §1). --dump-config serialises the effective configuration to
// YAML for operational visibility only; it is never read back in.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	perr "github.com/michaelneale/goose-perception/internal/errors"
)

// Config holds every tunable named in spec §6 plus the additive,
// non-contractual operational flags (model paths, data directory, log
// settings) a runnable binary needs.
type Config struct {
	Language string `yaml:"language"`
	Device   int    `yaml:"device"`
	Channels int    `yaml:"channels"`

	RecordingsDir string `yaml:"recordings_dir"`
	DataDir       string `yaml:"data_dir"`

	ContextSeconds      int     `yaml:"context_seconds"`
	SilenceSeconds      int     `yaml:"silence_seconds"`
	FuzzyThreshold      float64 `yaml:"fuzzy_threshold"`
	ClassifierThreshold float64 `yaml:"classifier_threshold"`
	SilenceThreshold    float64 `yaml:"silence_threshold"`
	SpeechThreshold     float64 `yaml:"speech_threshold"`
	NoiseRatio          float64 `yaml:"noise_ratio"`

	ChunkSeconds float64 `yaml:"chunk_seconds"`

	CheapModelPath    string `yaml:"cheap_model_path"`
	AccurateModelPath string `yaml:"accurate_model_path"`

	OpenAIAPIKey string `yaml:"-"` // never serialised
	OpenAIModel  string `yaml:"openai_model"`

	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format"`

	Denoise bool `yaml:"denoise"`

	ListDevices bool `yaml:"-"`
	Calibrate   bool `yaml:"-"`
	DumpConfig  string `yaml:"-"`
}

// Default returns the documented defaults from spec §4.3/§4.5/§4.7/§6.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Device:              -1,
		Channels:            1,
		RecordingsDir:       filepath.Join(home, ".local", "share", "goose-perception", "recordings"),
		DataDir:             filepath.Join(home, ".local", "share", "goose-perception"),
		ContextSeconds:      30,
		SilenceSeconds:      3,
		FuzzyThreshold:      80,
		ClassifierThreshold: 0.6,
		SilenceThreshold:    0.008,
		SpeechThreshold:     0.01,
		NoiseRatio:          0.9,
		ChunkSeconds:        2.0,
		LogFormat:           "text",
	}
}

// BindFlags registers every spec §6 flag plus the additive operational
// flags onto fs, with cfg pre-populated by Default() as the flag defaults.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Language, "language", cfg.Language, "optional ASR language hint")
	fs.IntVar(&cfg.Device, "device", cfg.Device, "optional audio device index")
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "capture channel count")
	fs.BoolVar(&cfg.ListDevices, "list-devices", false, "print devices and exit")
	fs.StringVar(&cfg.RecordingsDir, "recordings-dir", cfg.RecordingsDir, "output directory for utterance artifacts")
	fs.IntVar(&cfg.ContextSeconds, "context-seconds", cfg.ContextSeconds, "rolling context window, seconds")
	fs.IntVar(&cfg.SilenceSeconds, "silence-seconds", cfg.SilenceSeconds, "trailing silence before dispatch, seconds")
	fs.Float64Var(&cfg.FuzzyThreshold, "fuzzy-threshold", cfg.FuzzyThreshold, "fuzzy wake-word match threshold, 0..100")
	fs.Float64Var(&cfg.ClassifierThreshold, "classifier-threshold", cfg.ClassifierThreshold, "address classifier confidence threshold, 0..1")
	fs.Float64Var(&cfg.SilenceThreshold, "silence-threshold", cfg.SilenceThreshold, "mean-abs amplitude below which a chunk is Silence")
	fs.Float64Var(&cfg.SpeechThreshold, "speech-threshold", cfg.SpeechThreshold, "mean-abs amplitude at/above which a chunk may be Speech")
	fs.Float64Var(&cfg.NoiseRatio, "noise-ratio", cfg.NoiseRatio, "max noise ratio for Speech classification")

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "per-user data directory for spoken.txt/words.json/ACTIVITY-LOG.md")
	fs.StringVar(&cfg.CheapModelPath, "cheap-model-path", cfg.CheapModelPath, "whisper.cpp model path for the cheap tier")
	fs.StringVar(&cfg.AccurateModelPath, "accurate-model-path", cfg.AccurateModelPath, "whisper.cpp model path for the accurate tier")
	fs.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", "", "API key for the reference Address Classifier; empty uses the rule-based fallback")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", "gpt-4o-mini", "chat model used by the reference Address Classifier")
	fs.BoolVar(&cfg.Denoise, "denoise", cfg.Denoise, "pre-filter captured audio through the rnnoise denoiser before chunking (no-op unless built with -tags rnnoise)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	fs.BoolVar(&cfg.Calibrate, "calibrate", false, "run the VAD calibration wizard instead of the pipeline")
	fs.StringVar(&cfg.DumpConfig, "dump-config", "", "write the effective configuration as YAML to this path and continue")
}

// ChunkDuration returns ChunkSeconds as a time.Duration.
func (c Config) ChunkDuration() time.Duration {
	return time.Duration(c.ChunkSeconds * float64(time.Second))
}

// Validate reports a ConfigError for any out-of-range threshold or missing
// required directory, fatal before pipeline start per spec §7.
func (c Config) Validate() error {
	switch {
	case c.Channels < 1:
		return perr.Newf(perr.ConfigError, "config", "channels must be >= 1, got %d", c.Channels)
	case c.ContextSeconds <= 0:
		return perr.Newf(perr.ConfigError, "config", "context-seconds must be > 0, got %d", c.ContextSeconds)
	case c.SilenceSeconds <= 0:
		return perr.Newf(perr.ConfigError, "config", "silence-seconds must be > 0, got %d", c.SilenceSeconds)
	case c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100:
		return perr.Newf(perr.ConfigError, "config", "fuzzy-threshold must be in [0,100], got %v", c.FuzzyThreshold)
	case c.ClassifierThreshold < 0 || c.ClassifierThreshold > 1:
		return perr.Newf(perr.ConfigError, "config", "classifier-threshold must be in [0,1], got %v", c.ClassifierThreshold)
	case c.SilenceThreshold < 0:
		return perr.Newf(perr.ConfigError, "config", "silence-threshold must be >= 0, got %v", c.SilenceThreshold)
	case c.SpeechThreshold < 0:
		return perr.Newf(perr.ConfigError, "config", "speech-threshold must be >= 0, got %v", c.SpeechThreshold)
	case c.NoiseRatio <= 0:
		return perr.Newf(perr.ConfigError, "config", "noise-ratio must be > 0, got %v", c.NoiseRatio)
	case c.ChunkSeconds <= 0:
		return perr.Newf(perr.ConfigError, "config", "chunk duration must be > 0, got %v", c.ChunkSeconds)
	case c.RecordingsDir == "":
		return perr.New(perr.ConfigError, "config", fmt.Errorf("recordings-dir must not be empty"))
	case c.DataDir == "":
		return perr.New(perr.ConfigError, "config", fmt.Errorf("data-dir must not be empty"))
	}
	return nil
}

// DumpYAML serialises the effective configuration to path.
func (c Config) DumpYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return perr.New(perr.IOError, "config", fmt.Errorf("write config dump %s: %w", path, err))
	}
	return nil
}
