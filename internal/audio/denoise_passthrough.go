//go:build !rnnoise
// +build !rnnoise

package audio

import "github.com/michaelneale/goose-perception/internal/logger"

// This file is used when building WITHOUT the rnnoise build tag. It
// provides a pass-through Denoiser so the rest of the pipeline needs no
// conditional wiring.

type passthroughDenoiser struct {
	log *logger.ContextLogger
}

// NewDenoiser returns the pass-through Denoiser (build with -tags rnnoise
// for actual suppression).
func NewDenoiser(log *logger.ContextLogger) (Denoiser, error) {
	log.Debugf("rnnoise disabled, using pass-through denoiser (build with -tags rnnoise for noise suppression)")
	return &passthroughDenoiser{log: log}, nil
}

func (d *passthroughDenoiser) Process(samples []float32) ([]float32, error) {
	return samples, nil
}

func (d *passthroughDenoiser) Reset() {}

func (d *passthroughDenoiser) Close() error { return nil }
