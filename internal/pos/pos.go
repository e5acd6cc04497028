// Package pos defines a pluggable part-of-speech tagger used by the
// Transcript Sink's noise filter and noun-frequency update (spec §4.8).
// No tagger library exists anywhere in the retrieval corpus; cmd/goose-listen
// wires HeuristicTagger, and a nil Tagger is also legal, in which case the
// sink skips the tagger-gated rules silently, exactly as spec §4.8 item 4
// allows.
package pos

import "strings"

// Class is an open- or closed-class part of speech.
type Class int

const (
	Other Class = iota
	Noun
	ProperNoun
	Verb
	Adjective
	Adverb
	Pronoun
	Determiner
)

// IsOpenClass reports whether c counts toward the noise filter's open-class
// ratio (noun/verb/adjective/adverb/pronoun/determiner per spec §4.8).
func (c Class) IsOpenClass() bool {
	switch c {
	case Noun, ProperNoun, Verb, Adjective, Adverb, Pronoun, Determiner:
		return true
	default:
		return false
	}
}

// Tag is one token's classification.
type Tag struct {
	Token string
	Class Class
}

// Tagger assigns a Class to each token. A nil Tagger is legal: callers must
// treat it as "tagger absent" and skip tagger-gated rules.
type Tagger interface {
	Tag(tokens []string) []Tag
}

// HeuristicTagger is the default, dependency-free tagger: it recognises a
// fixed closed-class word list (pronouns, determiners, common auxiliary/
// modal verbs) and otherwise guesses open-class via cheap suffix rules. It
// is deliberately approximate — good enough to gate a noise filter, not a
// linguistic tagger — because no POS-tagging library appears anywhere in
// the example corpus to ground a more precise implementation against.
type HeuristicTagger struct{}

var pronouns = map[string]bool{
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"me": true, "him": true, "her": true, "us": true, "them": true,
	"my": true, "your": true, "his": true, "its": true, "our": true, "their": true,
	"this": true, "that": true, "these": true, "those": true,
}

var determiners = map[string]bool{
	"the": true, "a": true, "an": true, "some": true, "any": true, "no": true, "every": true, "each": true,
}

var auxVerbs = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true, "can": true, "could": true, "will": true, "would": true,
	"shall": true, "should": true, "may": true, "might": true, "must": true, "have": true, "has": true, "had": true,
}

// Tag implements Tagger.
func (HeuristicTagger) Tag(tokens []string) []Tag {
	out := make([]Tag, len(tokens))
	for i, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,!?;:\"'()"))
		out[i] = Tag{Token: tok, Class: classify(lower, tok)}
	}
	return out
}

func classify(lower, original string) Class {
	switch {
	case lower == "":
		return Other
	case pronouns[lower]:
		return Pronoun
	case determiners[lower]:
		return Determiner
	case auxVerbs[lower]:
		return Verb
	case strings.HasSuffix(lower, "ly"):
		return Adverb
	case strings.HasSuffix(lower, "ing") || strings.HasSuffix(lower, "ed"):
		return Verb
	case strings.HasSuffix(lower, "ous") || strings.HasSuffix(lower, "ful") || strings.HasSuffix(lower, "ive"):
		return Adjective
	case original != "" && isCapitalized(original):
		return ProperNoun
	default:
		return Noun
	}
}

func isCapitalized(s string) bool {
	r := []rune(s)
	return len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z'
}
