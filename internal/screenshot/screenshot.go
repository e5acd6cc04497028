// Package screenshot captures the full screen to a PNG file for the Hotkey
// Path (C10).
package screenshot

import (
	"fmt"
	"image/png"
	"os"

	"github.com/kbinani/screenshot"
)

// CaptureToTemp captures display 0 (the primary display) to a PNG file
// under dir and returns its path. dir is typically the OS temp directory.
func CaptureToTemp(dir string) (string, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return "", fmt.Errorf("no active displays found")
	}

	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return "", fmt.Errorf("capture display: %w", err)
	}

	f, err := os.CreateTemp(dir, "goose-screen-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp png: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("encode png: %w", err)
	}
	return f.Name(), nil
}
