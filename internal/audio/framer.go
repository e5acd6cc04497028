package audio

import "time"

// Chunk is an immutable, fixed-length slice of audio produced by Framer.
// Once produced it is never mutated; later stages attach new values (e.g.
// Metrics, transcripts) that reference it rather than modifying it in
// place.
type Chunk struct {
	Samples    []float32
	CapturedAt time.Time
	SequenceID uint64
}

// Framer accumulates incoming RawBuffers into fixed-duration Chunks,
// splitting or concatenating on exact sample boundaries so chunk length is
// deterministic regardless of the underlying callback's buffer sizes.
type Framer struct {
	chunkLen   int
	sampleRate int
	carry      []float32
	carryStart time.Time
	nextSeq    uint64
}

// NewFramer builds a Framer emitting chunks of chunkDuration seconds at
// sampleRate Hz.
func NewFramer(sampleRate int, chunkDuration time.Duration) *Framer {
	chunkLen := int(float64(sampleRate) * chunkDuration.Seconds())
	return &Framer{chunkLen: chunkLen, sampleRate: sampleRate}
}

// ChunkLen returns the fixed number of samples per chunk.
func (f *Framer) ChunkLen() int { return f.chunkLen }

// Push appends buf to the internal carry buffer and returns zero or more
// complete Chunks sliced on exact chunkLen boundaries. Any leftover samples
// are retained for the next call.
func (f *Framer) Push(buf RawBuffer) []Chunk {
	if len(f.carry) == 0 {
		f.carryStart = buf.CapturedAt
	}
	f.carry = append(f.carry, buf.Samples...)

	var out []Chunk
	for len(f.carry) >= f.chunkLen {
		samples := make([]float32, f.chunkLen)
		copy(samples, f.carry[:f.chunkLen])
		out = append(out, Chunk{
			Samples:    samples,
			CapturedAt: f.carryStart,
			SequenceID: f.nextSeq,
		})
		f.nextSeq++

		remaining := f.carry[f.chunkLen:]
		// Advance carryStart by exactly one chunk's worth of wall-clock time
		// so a partial tail's timestamp stays consistent even though the
		// underlying device callback doesn't stamp every sample.
		f.carryStart = f.carryStart.Add(time.Duration(float64(f.chunkLen) / float64(f.sampleRate) * float64(time.Second)))
		f.carry = append([]float32(nil), remaining...)
	}
	return out
}

// Flush returns any partial trailing buffer as a short, final Chunk (used
// only on shutdown when a partial tail should not simply be discarded
// silently without the caller's knowledge). Callers typically discard this
// on shutdown per spec §5's "abandon in-progress Active session" policy.
func (f *Framer) Flush() (Chunk, bool) {
	if len(f.carry) == 0 {
		return Chunk{}, false
	}
	samples := f.carry
	f.carry = nil
	c := Chunk{Samples: samples, CapturedAt: f.carryStart, SequenceID: f.nextSeq}
	f.nextSeq++
	return c, true
}
