//go:build rnnoise
// +build rnnoise

package audio

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/xaionaro-go/audio/pkg/audio"
	"github.com/xaionaro-go/audio/pkg/noisesuppression/implementations/rnnoise"

	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/logger"
)

// rnnoise operates on 48kHz audio in 10ms frames; the pipeline captures at
// SampleRate (16kHz), so every frame is upsampled in, processed, and
// downsampled back out.
const (
	rnnoiseSampleRate = 48000
	rnnoiseFrameMs    = 10
	rnnoiseFrameSize  = rnnoiseSampleRate * rnnoiseFrameMs / 1000 // 480
	pipelineFrameSize = SampleRate * rnnoiseFrameMs / 1000        // 160
)

// rnnoiseDenoiser adapts xaionaro-go/audio's rnnoise implementation to the
// Denoiser interface, hiding the 16kHz<->48kHz resampling the native library
// requires.
type rnnoiseDenoiser struct {
	denoiser *rnnoise.RNNoise
	carry    []float32
	log      *logger.ContextLogger
}

// NewDenoiser initializes the real rnnoise backend (mono channel).
func NewDenoiser(log *logger.ContextLogger) (Denoiser, error) {
	d, err := rnnoise.New(audio.Channel(1))
	if err != nil {
		return nil, perr.New(perr.DeviceError, "audio", fmt.Errorf("init rnnoise: %w", err))
	}
	log.Infof("rnnoise denoiser active (%dkHz <-> %dkHz resampling)", SampleRate/1000, rnnoiseSampleRate/1000)
	return &rnnoiseDenoiser{denoiser: d, carry: make([]float32, 0, pipelineFrameSize), log: log}, nil
}

// Process buffers samples into 10ms frames, denoises each complete frame,
// and returns the concatenated, denoised output. A short tail below one
// frame is held over to the next call.
func (d *rnnoiseDenoiser) Process(samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	d.carry = append(d.carry, samples...)

	var out []float32
	for len(d.carry) >= pipelineFrameSize {
		frame16k := d.carry[:pipelineFrameSize]
		d.carry = append([]float32(nil), d.carry[pipelineFrameSize:]...)

		frame48k := Upsample16to48Float(frame16k)
		input := floatsToBytes(frame48k)
		output := make([]byte, len(input))

		if _, err := d.denoiser.SuppressNoise(context.Background(), input, output); err != nil {
			return nil, perr.New(perr.DeviceError, "audio", fmt.Errorf("rnnoise suppress: %w", err))
		}

		denoised48k := bytesToFloats(output)
		out = append(out, Downsample48to16Float(denoised48k)...)
	}
	return out, nil
}

func (d *rnnoiseDenoiser) Reset() {
	d.carry = d.carry[:0]
}

func (d *rnnoiseDenoiser) Close() error {
	if d.denoiser == nil {
		return nil
	}
	return d.denoiser.Close()
}

// Upsample16to48Float converts 16kHz float32 audio to 48kHz via linear
// interpolation (48000/16000 is an exact 3x ratio).
func Upsample16to48Float(input []float32) []float32 {
	if len(input) == 0 {
		return nil
	}
	output := make([]float32, len(input)*3)
	for i := 0; i < len(input); i++ {
		base := i * 3
		if i < len(input)-1 {
			curr, next := input[i], input[i+1]
			diff := next - curr
			output[base] = curr
			output[base+1] = curr + diff/3
			output[base+2] = curr + 2*diff/3
		} else {
			output[base] = input[i]
			output[base+1] = input[i]
			output[base+2] = input[i]
		}
	}
	return output
}

// Downsample48to16Float converts 48kHz float32 audio to 16kHz, averaging
// each group of 3 samples for anti-aliasing.
func Downsample48to16Float(input []float32) []float32 {
	if len(input) == 0 {
		return nil
	}
	n := len(input) / 3
	output := make([]float32, n)
	for i := 0; i < n; i++ {
		idx := i * 3
		output[i] = (input[idx] + input[idx+1] + input[idx+2]) / 3
	}
	return output
}

func floatsToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, f := range samples {
		bits := *(*uint32)(unsafe.Pointer(&f))
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloats(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = *(*float32)(unsafe.Pointer(&bits))
	}
	return out
}
