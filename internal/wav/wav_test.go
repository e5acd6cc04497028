package wav

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFloat32RoundTrips(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0, 0.25}
	path := filepath.Join(t.TempDir(), "test.wav")

	if err := WriteFloat32(path, samples, 16000); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}

	pcm, sampleRate, channels, err := ReadPCM16(path)
	if err != nil {
		t.Fatalf("ReadPCM16: %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", sampleRate)
	}
	if channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(samples)*2)
	}
}

func TestFloatToPCM16ClampsOutOfRange(t *testing.T) {
	pcm := FloatToPCM16([]float32{2.0, -2.0})
	if len(pcm) != 4 {
		t.Fatalf("pcm length = %d, want 4", len(pcm))
	}
	// 2.0 clamps to 1.0 -> max positive int16 range (32767).
	v := int16(uint16(pcm[0]) | uint16(pcm[1])<<8)
	if v != 32767 {
		t.Errorf("clamped positive sample = %d, want 32767", v)
	}
}

func TestReadPCM16RejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-wav.bin")
	if err := WritePCM16(path, []byte{1, 2, 3}, 16000, 1); err != nil {
		t.Fatalf("WritePCM16: %v", err)
	}
	// Corrupt the RIFF magic.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	copy(data[0:4], "XXXX")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, _, _, err := ReadPCM16(path); err == nil {
		t.Fatal("expected error reading a file without the RIFF magic")
	}
}
