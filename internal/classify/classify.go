// Package classify implements the Address Classifier (C7): a pluggable
// binary classifier deciding whether a wake-normalised utterance is
// actually addressed to the assistant, plus the mandatory rule-based
// fallback used when no learned model is available.
package classify

import "strings"

// Classifier maps normalised text to an addressed verdict and confidence.
// Implementations must be pure (stateless across calls) and must not panic
// on empty or pathological input.
type Classifier interface {
	Classify(text string) (addressed bool, confidence float64)
}

// RuleBasedClassifier is the mandatory fallback (spec §4.6, grounded on the
// original source's _rule_based_classify): addressed=true, confidence=0.9
// iff the text contains "goose" and at least one request cue; otherwise
// false, 0.7.
type RuleBasedClassifier struct{}

// requestCues are the fixed set of question/command indicators.
var requestCues = []string{"?", "can you", "could you", "would you", "will you", "please"}

// Classify implements Classifier. It never panics: empty input simply fails
// both checks and returns {false, 0.7}.
func (RuleBasedClassifier) Classify(text string) (bool, float64) {
	lower := strings.ToLower(text)

	containsGoose := strings.Contains(lower, "goose")
	hasCue := false
	for _, cue := range requestCues {
		if strings.Contains(lower, cue) {
			hasCue = true
			break
		}
	}

	if containsGoose && hasCue {
		return true, 0.9
	}
	return false, 0.7
}
