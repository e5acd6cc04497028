package classify

import "testing"

func TestRuleBasedClassifierAddressedRequiresGooseAndCue(t *testing.T) {
	c := RuleBasedClassifier{}

	tests := []struct {
		name           string
		text           string
		wantAddressed  bool
		wantConfidence float64
	}{
		{"goose plus question mark", "goose what time is it?", true, 0.9},
		{"goose plus please", "goose please turn off the lights", true, 0.9},
		{"goose plus can you", "goose can you help me", true, 0.9},
		{"goose without cue", "goose is a bird", false, 0.7},
		{"cue without goose", "could you help me", false, 0.7},
		{"neither", "the weather is nice", false, 0.7},
		{"empty", "", false, 0.7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			addressed, confidence := c.Classify(tc.text)
			if addressed != tc.wantAddressed || confidence != tc.wantConfidence {
				t.Fatalf("Classify(%q) = (%v,%v), want (%v,%v)", tc.text, addressed, confidence, tc.wantAddressed, tc.wantConfidence)
			}
		})
	}
}

func TestRuleBasedClassifierCaseInsensitive(t *testing.T) {
	c := RuleBasedClassifier{}
	addressed, confidence := c.Classify("GOOSE, CAN YOU help?")
	if !addressed || confidence != 0.9 {
		t.Fatalf("case-insensitive match failed: (%v,%v)", addressed, confidence)
	}
}
