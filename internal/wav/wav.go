// Package wav encodes PCM16 little-endian mono audio into a minimal
// RIFF/WAVE container. It is the sole place the pipeline writes a WAV file,
// shared by the Transcript Sink and by tests that need synthetic fixtures.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const (
	bitsPerSample = 16
	riffHeaderLen = 44
)

// WriteFloat32 writes samples (in [-1.0, 1.0]) as a 16-bit PCM mono WAV file
// at sampleRate to path, converting losslessly by rounding to the nearest
// int16.
func WriteFloat32(path string, samples []float32, sampleRate int) error {
	pcm := FloatToPCM16(samples)
	return WritePCM16(path, pcm, sampleRate, 1)
}

// FloatToPCM16 converts float32 samples in [-1.0, 1.0] to 16-bit PCM LE
// bytes.
func FloatToPCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1.0 {
			v = 1.0
		}
		if v < -1.0 {
			v = -1.0
		}
		i16 := int16(math.Round(float64(v) * 32767.0))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(i16))
	}
	return buf
}

// WritePCM16 writes raw 16-bit PCM LE samples as a RIFF/WAVE file.
func WritePCM16(path string, pcmData []byte, sampleRate, channels int) error {
	var buf bytes.Buffer

	dataLen := uint32(len(pcmData))
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM format tag
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcmData)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write wav %s: %w", path, err)
	}
	return nil
}

// ReadPCM16 reads a RIFF/WAVE PCM16 file back into raw LE sample bytes,
// sample rate and channel count. Used only by tests.
func ReadPCM16(path string) (pcm []byte, sampleRate, channels int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(data) < riffHeaderLen || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("wav %s: not a RIFF/WAVE file", path)
	}

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			break
		}
		switch chunkID {
		case "fmt ":
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
		case "data":
			pcm = data[body : body+chunkSize]
		}
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}
	if pcm == nil {
		return nil, 0, 0, fmt.Errorf("wav %s: missing data chunk", path)
	}
	return pcm, sampleRate, channels, nil
}
