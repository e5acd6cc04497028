package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/michaelneale/goose-perception/internal/logger"
	"github.com/michaelneale/goose-perception/internal/pos"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	dir := t.TempDir()
	log := logger.New(false).With("test")
	s, err := New(filepath.Join(dir, "data"), filepath.Join(dir, "recordings"), pos.HeuristicTagger{}, nil, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestWriteUtteranceVoiceWritesWavAndTranscript(t *testing.T) {
	s := newTestSink(t)
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.1
	}

	art, err := s.WriteUtterance(Utterance{
		Samples:    samples,
		Transcript: "turn off the kitchen lights please",
		Origin:     Voice,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("WriteUtterance: %v", err)
	}
	if art.WavPath == "" {
		t.Fatal("expected wav path for Voice origin")
	}
	if _, err := os.Stat(art.WavPath); err != nil {
		t.Fatalf("wav file missing: %v", err)
	}
	if _, err := os.Stat(art.TranscriptPath); err != nil {
		t.Fatalf("transcript file missing: %v", err)
	}
}

func TestWriteUtteranceScreenSkipsWav(t *testing.T) {
	s := newTestSink(t)
	art, err := s.WriteUtterance(Utterance{
		Transcript: "Screenshot: /tmp/x.png\nInstruction: summarise this",
		Origin:     Screen,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("WriteUtterance: %v", err)
	}
	if art.WavPath != "" {
		t.Fatalf("expected no wav path for Screen origin, got %q", art.WavPath)
	}
}

func TestAppendSpokenLineFiltersNoise(t *testing.T) {
	s := newTestSink(t)
	if _, err := s.WriteUtterance(Utterance{Transcript: "turn off the kitchen lights please", Origin: Voice, Timestamp: time.Now()}); err != nil {
		t.Fatalf("WriteUtterance: %v", err)
	}
	if _, err := s.WriteUtterance(Utterance{Transcript: "a", Origin: Voice, Timestamp: time.Now()}); err != nil {
		t.Fatalf("WriteUtterance: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.dataDir, spokenLogName))
	if err != nil {
		t.Fatalf("read spoken log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 surviving line (noise filtered), got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "kitchen lights") {
		t.Fatalf("unexpected surviving line: %q", lines[0])
	}
}

func TestSpokenLogCapsToByteLimit(t *testing.T) {
	s := newTestSink(t)
	longLine := strings.Repeat("kitchen lights please turn them off now ", 50)
	for i := 0; i < 20; i++ {
		if err := s.appendSpokenLine(time.Now(), longLine); err != nil {
			t.Fatalf("appendSpokenLine: %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, spokenLogName))
	if err != nil {
		t.Fatalf("read spoken log: %v", err)
	}
	if len(data) > spokenLogCapByte {
		t.Fatalf("spoken log %d bytes exceeds cap %d", len(data), spokenLogCapByte)
	}
}

func TestWriteActivationRecordsFields(t *testing.T) {
	s := newTestSink(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.WriteActivation(ActivationRecord{Timestamp: ts, Confidence: 0.85, Triggered: true, Transcript: "hey goose hello"}); err != nil {
		t.Fatalf("WriteActivation: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.recordingsDir, "activation_triggered_*.txt"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 triggered activation file, got %d", len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read activation file: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "CONFIDENCE: 0.85") || !strings.Contains(body, "TRIGGERED: true") {
		t.Fatalf("unexpected activation body: %q", body)
	}
}

func TestLogActivityAppends(t *testing.T) {
	s := newTestSink(t)
	if err := s.LogActivity("pipeline starting"); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}
	if err := s.LogActivity("pipeline stopped"); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, activityLogName))
	if err != nil {
		t.Fatalf("read activity log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 activity lines, got %d", len(lines))
	}
}

func TestUpdateWordFrequencyCountsNouns(t *testing.T) {
	s := newTestSink(t)
	if _, err := s.WriteUtterance(Utterance{Transcript: "turn off the kitchen lights please", Origin: Voice, Timestamp: time.Now()}); err != nil {
		t.Fatalf("WriteUtterance: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, wordsFileName))
	if err != nil {
		t.Fatalf("read words file: %v", err)
	}
	if !strings.Contains(string(data), "kitchen") {
		t.Fatalf("expected kitchen to be counted, got %s", string(data))
	}
}
