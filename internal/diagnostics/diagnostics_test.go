package diagnostics

import (
	"errors"
	"testing"

	perr "github.com/michaelneale/goose-perception/internal/errors"
)

func TestReportDeliversEvent(t *testing.T) {
	b := New(4, nil)
	b.Report(perr.TranscriptionError, "transcribe", errors.New("timeout"))

	select {
	case ev := <-b.Events():
		if ev.Kind != perr.TranscriptionError || ev.Component != "transcribe" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected an event to be queued")
	}
}

func TestReportDropsOnOverflow(t *testing.T) {
	b := New(1, nil)
	b.Report(perr.IOError, "sink", errors.New("first"))
	b.Report(perr.IOError, "sink", errors.New("second")) // channel full, should drop

	if got := b.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
}
