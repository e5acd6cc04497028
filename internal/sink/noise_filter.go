package sink

import (
	"strings"
	"unicode"

	"github.com/michaelneale/goose-perception/internal/pos"
)

// allowedPunct is the punctuation set the noise filter's character-class
// rule tolerates, from spec §4.8.
const allowedPunct = `", .!?-'"():`

// PassesNoiseFilter applies the six ordered predicates from spec §4.8 to
// text before it may be appended to the rolling spoken-text log. tagger may
// be nil, in which case the tagger-gated rules (4 and 5) are skipped
// silently, per spec §4.8 item 4.
func PassesNoiseFilter(text string, tagger pos.Tagger) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if !passesCharacterClassRatio(trimmed) {
		return false
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) < 2 {
		return false
	}

	if tagger != nil {
		tags := tagger.Tag(tokens)
		if !passesOpenClassRatio(tags) {
			return false
		}
		if !hasNounOrVerb(tags) {
			return false
		}
	}

	if !passesNumericTokenRatio(tokens) {
		return false
	}

	return true
}

func passesCharacterClassRatio(text string) bool {
	var total, allowed int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunct, r) {
			allowed++
		}
	}
	if total == 0 {
		return false
	}
	return float64(allowed)/float64(total) >= 0.60
}

func passesOpenClassRatio(tags []pos.Tag) bool {
	if len(tags) == 0 {
		return false
	}
	var openClass int
	for _, t := range tags {
		if t.Class.IsOpenClass() {
			openClass++
		}
	}
	return float64(openClass)/float64(len(tags)) >= 0.30
}

func hasNounOrVerb(tags []pos.Tag) bool {
	for _, t := range tags {
		if t.Class == pos.Noun || t.Class == pos.ProperNoun || t.Class == pos.Verb {
			return true
		}
	}
	return false
}

func passesNumericTokenRatio(tokens []string) bool {
	if len(tokens) < 4 {
		return true
	}
	var numeric int
	for _, tok := range tokens {
		if isPurelyNumeric(tok) {
			numeric++
		}
	}
	return float64(numeric)/float64(len(tokens)) <= 0.50
}

func isPurelyNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
