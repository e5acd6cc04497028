package wake

import (
	"testing"

	"github.com/michaelneale/goose-perception/internal/logger"
)

type stubClassifier struct {
	addressed  bool
	confidence float64
	lastText   string
}

func (s *stubClassifier) Classify(text string) (bool, float64) {
	s.lastText = text
	return s.addressed, s.confidence
}

func newDetector(c *stubClassifier) *Detector {
	return New(DefaultConfig(), c, logger.New(false).With("test"))
}

func TestDetectEmptyTranscriptNeverMatches(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	res := d.Detect("")
	if res.Path != NoMatch {
		t.Fatalf("empty transcript: path = %v, want NoMatch", res.Path)
	}
	if c.lastText != "" {
		t.Fatalf("classifier should not be consulted on empty transcript")
	}
}

func TestDetectExactWordBeatsFuzzyAndPhrase(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	res := d.Detect("hey goose what time is it")
	if res.Path != ExactWord {
		t.Fatalf("path = %v, want ExactWord (exact word is tried before exact phrase)", res.Path)
	}
}

func TestDetectExactWordOnly(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	res := d.Detect("goose what time is it")
	if res.Path != ExactWord {
		t.Fatalf("path = %v, want ExactWord", res.Path)
	}
}

func TestDetectFuzzyWordMatch(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	res := d.Detect("goos what time is it")
	if res.Path != FuzzyWord {
		t.Fatalf("path = %v, want FuzzyWord, got confidence match on %q", res.Path, res.NormalizedText)
	}
}

func TestDetectNoMatchForUnrelatedText(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	res := d.Detect("the weather is nice today")
	if res.Path != NoMatch {
		t.Fatalf("path = %v, want NoMatch", res.Path)
	}
}

func TestDetectAcceptedRequiresBothAddressedAndThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClassifierThreshold = 0.6

	cases := []struct {
		name       string
		addressed  bool
		confidence float64
		accepted   bool
	}{
		{"addressed above threshold", true, 0.9, true},
		{"addressed below threshold", true, 0.5, false},
		{"not addressed, high confidence", false, 0.9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &stubClassifier{addressed: tc.addressed, confidence: tc.confidence}
			d := New(cfg, c, logger.New(false).With("test"))
			res := d.Detect("hey goose do something")
			if res.Accepted != tc.accepted {
				t.Fatalf("accepted = %v, want %v", res.Accepted, tc.accepted)
			}
		})
	}
}

func TestDetectNormalizesMatchedSpanToCanonicalForm(t *testing.T) {
	c := &stubClassifier{addressed: true, confidence: 1}
	d := newDetector(c)
	d.Detect("hey goose turn on the lights")
	if c.lastText != "hey goose turn on the lights" {
		t.Fatalf("normalized text = %q", c.lastText)
	}
}
