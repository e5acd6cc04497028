package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/michaelneale/goose-perception/internal/audio"
	"github.com/michaelneale/goose-perception/internal/config"
	"github.com/michaelneale/goose-perception/internal/logger"
)

// runCalibration is --calibrate: record background noise then speech
// directly against the local Capturer/Framer (no separate server round
// trip, unlike the REST-backed wizard this is adapted from), and recommend
// a --silence-threshold.
func runCalibration(cfg config.Config, log *logger.Logger) int {
	calLog := log.With("calibrate")

	capturer, err := audio.New(audio.Config{DeviceIndex: cfg.Device, Channels: cfg.Channels, ChannelCapacity: 64}, calLog)
	if err != nil {
		calLog.Errorf("failed to initialise capture: %v", err)
		return 2
	}
	defer capturer.Close()

	fmt.Println()
	fmt.Println("VAD calibration wizard")
	fmt.Println("-----------------------")
	fmt.Println()

	fmt.Println("Step 1/2: background noise. Be quiet, then press Enter.")
	waitForEnter()
	fmt.Println("Recording 5 seconds of background...")
	background, err := recordFor(capturer, 5*time.Second)
	if err != nil {
		calLog.Errorf("background recording failed: %v", err)
		return 2
	}
	bgStats := amplitudeStats(background)

	fmt.Println("Step 2/2: speech. Speak normally, then press Enter.")
	waitForEnter()
	fmt.Println("Recording 5 seconds of speech...")
	speech, err := recordFor(capturer, 5*time.Second)
	if err != nil {
		calLog.Errorf("speech recording failed: %v", err)
		return 2
	}
	speechStats := amplitudeStats(speech)

	// Recommend a silence_threshold above background with a safety margin,
	// the same shape of heuristic as the REST-backed wizard this replaces:
	// background P95 * 1.5, floored at background average * 2 for very
	// quiet environments.
	recommended := bgStats.p95 * 1.5
	if floor := bgStats.avg * 2; recommended < floor {
		recommended = floor
	}

	fmt.Printf("\nBackground: min=%.4f avg=%.4f max=%.4f p95=%.4f\n", bgStats.min, bgStats.avg, bgStats.max, bgStats.p95)
	fmt.Printf("Speech:     min=%.4f avg=%.4f max=%.4f p5=%.4f\n", speechStats.min, speechStats.avg, speechStats.max, speechStats.p5)
	fmt.Printf("\nRecommended --silence-threshold: %.4f\n", recommended)
	fmt.Printf("Re-run with: goose-listen --silence-threshold %.4f\n\n", recommended)

	return 0
}

func waitForEnter() {
	fmt.Print("Press Enter when ready...")
	bufio.NewReader(os.Stdin).ReadString('\n')
}

func recordFor(capturer *audio.Capturer, duration time.Duration) ([]float32, error) {
	if err := capturer.Start(); err != nil {
		return nil, err
	}
	defer capturer.Stop()

	var all []float32
	deadline := time.After(duration)
	for {
		select {
		case buf := <-capturer.Buffers():
			all = append(all, buf.Samples...)
		case <-deadline:
			// Drain whatever is already queued without blocking further.
			for {
				select {
				case buf := <-capturer.Buffers():
					all = append(all, buf.Samples...)
				default:
					return all, nil
				}
			}
		}
	}
}

type stats struct {
	min, max, avg, p5, p95 float64
}

func amplitudeStats(samples []float32) stats {
	if len(samples) == 0 {
		return stats{}
	}
	abs := make([]float64, len(samples))
	var sum float64
	for i, s := range samples {
		v := math.Abs(float64(s))
		abs[i] = v
		sum += v
	}
	sort.Float64s(abs)
	return stats{
		min: abs[0],
		max: abs[len(abs)-1],
		avg: sum / float64(len(abs)),
		p5:  percentile(abs, 5),
		p95: percentile(abs, 95),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100.0)
	return sorted[idx]
}
