// Package diagnostics carries worker failures to a single consumer without
// letting a slow or absent consumer block the worker that raised them. The
// Session Controller is the producer; cmd/goose-listen drains the events and
// logs them, and no event ends a session or the process. This mirrors the
// teacher's transcription result channel: a bounded channel with a
// non-blocking send that drops and counts on overflow.
package diagnostics

import (
	"sync/atomic"
	"time"

	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/logger"
)

// Event is a single diagnostic occurrence forwarded by a worker.
type Event struct {
	Kind      perr.Kind
	Component string
	Err       error
	At        time.Time
}

// Bus is a bounded fan-in channel of diagnostic Events plus a dropped-event
// counter for observability.
type Bus struct {
	events  chan Event
	dropped uint64
	log     *logger.ContextLogger
}

// New creates a Bus with the given channel capacity.
func New(capacity int, log *logger.ContextLogger) *Bus {
	return &Bus{events: make(chan Event, capacity), log: log}
}

// Report forwards err as a diagnostic Event, never blocking the caller. On
// overflow the event is dropped and counted.
func (b *Bus) Report(kind perr.Kind, component string, err error) {
	ev := Event{Kind: kind, Component: component, Err: err, At: time.Now()}
	select {
	case b.events <- ev:
	default:
		atomic.AddUint64(&b.dropped, 1)
		if b.log != nil {
			b.log.Warnf("diagnostics bus full, dropped event kind=%s component=%s", kind, component)
		}
	}
}

// Events exposes the receive-only event channel for the consumer to drain.
func (b *Bus) Events() <-chan Event { return b.events }

// Dropped returns the count of events dropped due to a full channel.
func (b *Bus) Dropped() uint64 { return atomic.LoadUint64(&b.dropped) }

// Close closes the underlying channel. Call only after all producers have
// stopped sending.
func (b *Bus) Close() { close(b.events) }
