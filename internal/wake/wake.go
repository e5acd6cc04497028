// Package wake implements the Wake Detector (C6): exact word, exact phrase,
// fuzzy word, and fuzzy phrase matching against a configured set of wake
// tokens, followed by text normalisation and an Address Classifier call.
package wake

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/michaelneale/goose-perception/internal/classify"
	"github.com/michaelneale/goose-perception/internal/logger"
)

// Config tunes wake-token matching.
type Config struct {
	Words               []string // default {"goose", "gus"}
	Phrases             []string // default {"hey goose", "hey gus"}
	FuzzyThreshold      float64  // [0,100], default 80
	ClassifierThreshold float64  // [0,1], default 0.6
}

// DefaultConfig returns the spec's documented wake-detection defaults.
func DefaultConfig() Config {
	return Config{
		Words:               []string{"goose", "gus"},
		Phrases:             []string{"hey goose", "hey gus"},
		FuzzyThreshold:      80,
		ClassifierThreshold: 0.6,
	}
}

// Path names which detection stage fired.
type Path string

const (
	NoMatch     Path = "none"
	ExactWord   Path = "exact_word"
	ExactPhrase Path = "exact_phrase"
	FuzzyWord   Path = "fuzzy_word"
	FuzzyPhrase Path = "fuzzy_phrase"
)

// Result records a single wake-detection attempt, accepted or not. Every
// invocation that reaches the classifier is recorded by the caller as the
// ground truth for later threshold tuning; the detector itself is stateless.
type Result struct {
	Path           Path
	RawText        string
	NormalizedText string
	Confidence     float64
	Addressed      bool
	Accepted       bool
}

// Detector implements C6. It is stateless across calls; the classifier is a
// value passed in at construction (spec §9: no lazily constructed global).
type Detector struct {
	cfg        Config
	classifier classify.Classifier
	log        *logger.ContextLogger
}

// New builds a Detector using classifier for the address-classification
// step.
func New(cfg Config, classifier classify.Classifier, log *logger.ContextLogger) *Detector {
	return &Detector{cfg: cfg, classifier: classifier, log: log}
}

// Detect runs the four-path cascade against transcript (a cheap-tier
// transcript for one chunk). An empty transcript never matches, even via
// the fuzzy path, since there are no tokens to compare (spec §4.7 edge
// case).
func (d *Detector) Detect(transcript string) Result {
	tokens := strings.Fields(strings.ToLower(transcript))
	if len(tokens) == 0 {
		return Result{Path: NoMatch, RawText: transcript}
	}

	if idx, word, ok := d.matchExactWord(tokens); ok {
		return d.finish(ExactWord, transcript, tokens, idx, 1, canonicalWord(word))
	}
	if idx, phrase, ok := d.matchExactPhrase(tokens); ok {
		return d.finish(ExactPhrase, transcript, tokens, idx, 2, canonicalPhrase(phrase))
	}
	if idx, word, ok := d.matchFuzzyWord(tokens); ok {
		return d.finish(FuzzyWord, transcript, tokens, idx, 1, canonicalWord(word))
	}
	if idx, ok := d.matchFuzzyPhrase(tokens); ok {
		return d.finish(FuzzyPhrase, transcript, tokens, idx, 2, "hey goose")
	}

	return Result{Path: NoMatch, RawText: transcript}
}

func (d *Detector) matchExactWord(tokens []string) (int, string, bool) {
	for i, tok := range tokens {
		for _, w := range d.cfg.Words {
			if tok == w {
				return i, w, true
			}
		}
	}
	return 0, "", false
}

func (d *Detector) matchExactPhrase(tokens []string) (int, string, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		window := tokens[i] + " " + tokens[i+1]
		for _, p := range d.cfg.Phrases {
			if window == p {
				return i, p, true
			}
		}
	}
	return 0, "", false
}

func (d *Detector) matchFuzzyWord(tokens []string) (int, string, bool) {
	for i, tok := range tokens {
		for _, w := range d.cfg.Words {
			if similarity(tok, w) >= d.cfg.FuzzyThreshold {
				return i, w, true
			}
		}
	}
	return 0, "", false
}

func (d *Detector) matchFuzzyPhrase(tokens []string) (int, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		window := tokens[i] + " " + tokens[i+1]
		for _, p := range d.cfg.Phrases {
			if similarity(window, p) >= d.cfg.FuzzyThreshold {
				return i, true
			}
		}
	}
	return 0, false
}

// similarity scales matchr's Jaro-Winkler distance (a [0,1] similarity) to
// the spec's [0,100] fuzzy_threshold contract.
func similarity(a, b string) float64 {
	return matchr.JaroWinkler(a, b, false) * 100
}

func canonicalWord(string) string   { return "goose" }
func canonicalPhrase(string) string { return "hey goose" }

// finish normalises the transcript by substituting the matched span (width
// tokens starting at idx) with canonical, then consults the Address
// Classifier on the normalised text.
func (d *Detector) finish(path Path, raw string, tokens []string, idx, width int, canonical string) Result {
	normalizedTokens := make([]string, 0, len(tokens)-width+1)
	normalizedTokens = append(normalizedTokens, tokens[:idx]...)
	normalizedTokens = append(normalizedTokens, strings.Fields(canonical)...)
	normalizedTokens = append(normalizedTokens, tokens[idx+width:]...)
	normalized := strings.Join(normalizedTokens, " ")

	addressed, confidence := d.classifier.Classify(normalized)
	accepted := addressed && confidence >= d.cfg.ClassifierThreshold

	return Result{
		Path:           path,
		RawText:        raw,
		NormalizedText: normalized,
		Confidence:     confidence,
		Addressed:      addressed,
		Accepted:       accepted,
	}
}
