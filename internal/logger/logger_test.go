package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerRespectsMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: Warn, Format: Text, Output: &buf})
	l.Info("should be suppressed")
	l.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be suppressed") {
		t.Fatal("Info below minimum level should not be logged")
	}
	if !strings.Contains(out, "should appear") {
		t.Fatal("Warn at minimum level should be logged")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: Debug, Format: JSON, Output: &buf})
	l.With("audio").Infof("capture started on %q", "default")

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if entry.Component != "audio" {
		t.Errorf("component = %q, want audio", entry.Component)
	}
	if entry.Level != "INFO" {
		t.Errorf("level = %q, want INFO", entry.Level)
	}
}

func TestContextLoggerMergesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: Debug, Format: JSON, Output: &buf}).WithFields(map[string]interface{}{"pid": 123})
	cl := l.With("session").WithFields(map[string]interface{}{"state": "Active"})
	cl.Info("state changed")

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry.Fields["pid"] != float64(123) {
		t.Errorf("fields[pid] = %v, want 123", entry.Fields["pid"])
	}
	if entry.Fields["state"] != "Active" {
		t.Errorf("fields[state] = %v, want Active", entry.Fields["state"])
	}
}

func TestParseLevelAndFormatDefaults(t *testing.T) {
	if ParseLevel("bogus") != Info {
		t.Error("unknown level should default to Info")
	}
	if ParseLevel("debug") != Debug {
		t.Error("debug should parse to Debug")
	}
	if ParseFormat("bogus") != Text {
		t.Error("unknown format should default to Text")
	}
	if ParseFormat("json") != JSON {
		t.Error("json should parse to JSON")
	}
}
