package audio

import (
	"testing"
	"time"
)

func mkBuf(n int, at time.Time) RawBuffer {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i)
	}
	return RawBuffer{Samples: samples, CapturedAt: at}
}

func TestFramerEmitsOnExactBoundary(t *testing.T) {
	f := NewFramer(16000, 100*time.Millisecond) // chunkLen = 1600
	now := time.Now()

	chunks := f.Push(mkBuf(1600, now))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].Samples) != 1600 {
		t.Fatalf("chunk length = %d, want 1600", len(chunks[0].Samples))
	}
	if chunks[0].SequenceID != 0 {
		t.Fatalf("sequence id = %d, want 0", chunks[0].SequenceID)
	}
}

func TestFramerCarriesPartialAcrossPushes(t *testing.T) {
	f := NewFramer(16000, 100*time.Millisecond) // chunkLen = 1600
	now := time.Now()

	chunks := f.Push(mkBuf(1000, now))
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks from partial push, got %d", len(chunks))
	}

	chunks = f.Push(mkBuf(600, now.Add(10*time.Millisecond)))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk after completing boundary, got %d", len(chunks))
	}
}

func TestFramerSplitsMultipleChunksFromOneBuffer(t *testing.T) {
	f := NewFramer(16000, 100*time.Millisecond) // chunkLen = 1600
	now := time.Now()

	chunks := f.Push(mkBuf(1600*3+400, now))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.SequenceID != uint64(i) {
			t.Errorf("chunk %d: SequenceID = %d, want %d", i, c.SequenceID, i)
		}
	}
}

func TestFramerFlushReturnsTrailingPartial(t *testing.T) {
	f := NewFramer(16000, 100*time.Millisecond)
	now := time.Now()

	f.Push(mkBuf(900, now))
	c, ok := f.Flush()
	if !ok {
		t.Fatal("expected Flush to return the trailing partial buffer")
	}
	if len(c.Samples) != 900 {
		t.Fatalf("flushed chunk length = %d, want 900", len(c.Samples))
	}

	_, ok = f.Flush()
	if ok {
		t.Fatal("second Flush with no carry should return false")
	}
}

func TestFramerChunkLen(t *testing.T) {
	f := NewFramer(16000, 2*time.Second)
	if f.ChunkLen() != 32000 {
		t.Fatalf("ChunkLen() = %d, want 32000", f.ChunkLen())
	}
}
