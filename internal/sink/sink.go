// Package sink implements the Transcript Sink (C9): the rolling spoken-text
// log, the noun-frequency map, per-utterance WAV + transcript artifacts,
// the wake-activation audit trail, and the fire-and-forget downstream agent
// invocation.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/michaelneale/goose-perception/internal/logger"
	"github.com/michaelneale/goose-perception/internal/pos"
	"github.com/michaelneale/goose-perception/internal/wav"
)

const (
	spokenLogName    = "spoken.txt"
	wordsFileName    = "words.json"
	activityLogName  = "ACTIVITY-LOG.md"
	spokenLogCapByte = 5 * 1024
	sampleRate       = 16000
)

// Origin distinguishes a voice-captured utterance from a hotkey/screen one.
type Origin int

const (
	Voice Origin = iota
	Screen
)

func (o Origin) String() string {
	if o == Screen {
		return "Screen"
	}
	return "Voice"
}

// Utterance is the completed artifact handed to the sink by C8 (Voice) or
// C10 (Screen).
type Utterance struct {
	Samples        []float32 // concatenated capture-rate PCM; nil for Screen
	Transcript     string    // final high-quality transcript body
	Origin         Origin
	Timestamp      time.Time
	WakeConfidence float64 // Voice only
	Instruction    string  // Screen only
	ScreenshotPath string  // Screen only
}

// Artifact is the pair of paths written for one utterance.
type Artifact struct {
	WavPath        string // empty for Screen origin
	TranscriptPath string
}

// ActivationRecord is one wake-detection audit line (spec §6).
type ActivationRecord struct {
	Timestamp  time.Time
	Confidence float64
	Triggered  bool
	Transcript string // raw cheap transcript
}

// AgentInvoker is invoked fire-and-forget with the path to a finished
// transcript. The downstream agent itself is out of scope (spec §1); only
// this call boundary is specified.
type AgentInvoker func(transcriptPath string)

// Sink implements C9.
type Sink struct {
	dataDir       string
	recordingsDir string
	tagger        pos.Tagger
	invokeAgent   AgentInvoker
	log           *logger.ContextLogger

	mu sync.Mutex // serialises spoken.txt / words.json read-modify-write
}

// New builds a Sink. dataDir is the per-user data directory (default
// $HOME/.local/share/goose-perception); recordingsDir holds per-utterance
// artifacts. tagger may be nil (spec §4.8 item 4: skip silently).
func New(dataDir, recordingsDir string, tagger pos.Tagger, invokeAgent AgentInvoker, log *logger.ContextLogger) (*Sink, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	if err := os.MkdirAll(recordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir %s: %w", recordingsDir, err)
	}
	return &Sink{
		dataDir:       dataDir,
		recordingsDir: recordingsDir,
		tagger:        tagger,
		invokeAgent:   invokeAgent,
		log:           log,
	}, nil
}

// WriteUtterance performs the five steps of spec §4.8 for one completed
// utterance: WAV (Voice only), transcript text, rolling log line (noise
// filtered), noun-frequency update, fire-and-forget agent invocation.
func (s *Sink) WriteUtterance(u Utterance) (Artifact, error) {
	ts := u.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := ts.Format("20060102_150405")

	var art Artifact

	if u.Origin == Voice {
		wavPath := filepath.Join(s.recordingsDir, fmt.Sprintf("conversation_%s.wav", stamp))
		if err := wav.WriteFloat32(wavPath, u.Samples, sampleRate); err != nil {
			s.log.Errorf("write wav artifact: %v", err)
		} else {
			art.WavPath = wavPath
		}
	}

	transcriptPath := filepath.Join(s.recordingsDir, fmt.Sprintf("conversation_%s.txt", stamp))
	if err := os.WriteFile(transcriptPath, []byte(ensureTrailingNewline(u.Transcript)), 0o644); err != nil {
		s.log.Errorf("write transcript artifact: %v", err)
		return art, fmt.Errorf("write transcript: %w", err)
	}
	art.TranscriptPath = transcriptPath

	s.mu.Lock()
	if err := s.appendSpokenLine(ts, u.Transcript); err != nil {
		s.log.Warnf("append spoken log: %v", err)
	}
	if err := s.updateWordFrequency(u.Transcript); err != nil {
		s.log.Warnf("update word frequency: %v", err)
	}
	s.mu.Unlock()

	if s.invokeAgent != nil {
		go s.invokeAgent(transcriptPath)
	}

	return art, nil
}

// WriteActivation appends an activation audit record (spec §6): one
// activation_triggered_* file per accepted wake, one activation_bypassed_*
// file per rejected candidate that reached the classifier.
func (s *Sink) WriteActivation(rec ActivationRecord) error {
	stamp := rec.Timestamp.Format("20060102_150405")
	kind := "bypassed"
	if rec.Triggered {
		kind = "triggered"
	}
	path := filepath.Join(s.recordingsDir, fmt.Sprintf("activation_%s_%s.txt", kind, stamp))

	body := fmt.Sprintf(
		"TIMESTAMP: %s\nCONFIDENCE: %.2f\nTRIGGERED: %t\nTRANSCRIPT: %s\n",
		rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Confidence, rec.Triggered, rec.Transcript,
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write activation record: %w", err)
	}
	return nil
}

// LogActivity appends one line to ACTIVITY-LOG.md.
func (s *Sink) LogActivity(message string) error {
	line := fmt.Sprintf("**%s**: %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
	return appendLine(filepath.Join(s.dataDir, activityLogName), line)
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// appendSpokenLine appends a timestamped line to spoken.txt if it passes
// the noise filter, then enforces the ~5KB cap by dropping the oldest
// lines. Must be called with s.mu held.
func (s *Sink) appendSpokenLine(ts time.Time, text string) error {
	if !PassesNoiseFilter(text, s.tagger) {
		return nil
	}

	path := filepath.Join(s.dataDir, spokenLogName)
	existing, _ := os.ReadFile(path) // absent file is fine, existing stays empty

	line := fmt.Sprintf("[%s] %s\n", ts.Format("2006-01-02 15:04:05"), strings.TrimSpace(text))
	combined := append(existing, []byte(line)...)
	combined = capToByteLimit(combined, spokenLogCapByte)

	return atomicWrite(path, combined, 0o644)
}

// capToByteLimit drops whole leading lines from data until its length is at
// or under limit bytes.
func capToByteLimit(data []byte, limit int) []byte {
	for len(data) > limit {
		idx := strings.IndexByte(string(data), '\n')
		if idx < 0 || idx+1 >= len(data) {
			break
		}
		data = data[idx+1:]
	}
	return data
}

// updateWordFrequency tags text's tokens and increments the persistent
// count of each noun/proper-noun. Skipped silently if no tagger is
// configured (spec §4.8 item 4). Must be called with s.mu held.
func (s *Sink) updateWordFrequency(text string) error {
	if s.tagger == nil {
		return nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	tags := s.tagger.Tag(tokens)

	path := filepath.Join(s.dataDir, wordsFileName)
	counts := map[string]int{}
	if existing, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(existing, &counts) // corrupt/missing file starts fresh
	}

	for _, t := range tags {
		if t.Class != pos.Noun && t.Class != pos.ProperNoun {
			continue
		}
		word := strings.ToLower(strings.Trim(t.Token, `.,!?;:"'()`))
		if word == "" {
			continue
		}
		counts[word]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data, err := marshalSortedJSON(keys, counts)
	if err != nil {
		return fmt.Errorf("marshal word counts: %w", err)
	}
	return atomicWrite(path, data, 0o644)
}

// marshalSortedJSON renders counts as a JSON object with keys in the given
// sorted order, since encoding/json always sorts map keys alphabetically
// anyway for map[string]int — this helper exists to make that guarantee
// explicit and independent of the stdlib's encoding detail.
func marshalSortedJSON(keys []string, counts map[string]int) ([]byte, error) {
	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "  %s: %d", string(kb), counts[k])
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return []byte(b.String()), nil
}
