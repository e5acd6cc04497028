package signal

import "testing"

func TestClassifyEmptyBufferIsTooWeak(t *testing.T) {
	m := Classify(nil, DefaultThresholds())
	if m.Class != TooWeak {
		t.Fatalf("empty buffer: got %v, want TooWeak", m.Class)
	}
}

func TestClassifySingleSampleDoesNotPanic(t *testing.T) {
	// Regression: std/noiseRatio division must stay finite at n=1.
	m := Classify([]float32{0.5}, DefaultThresholds())
	if m.MeanAbs != 0.5 {
		t.Fatalf("mean abs = %v, want 0.5", m.MeanAbs)
	}
	if m.ZeroCrossRate != 0 {
		t.Fatalf("zero cross rate for n=1 = %v, want 0", m.ZeroCrossRate)
	}
}

func TestClassifySilentBufferIsTooWeakOrSilence(t *testing.T) {
	samples := make([]float32, 1600)
	m := Classify(samples, DefaultThresholds())
	if m.Class != TooWeak {
		t.Fatalf("all-zero buffer: got %v, want TooWeak", m.Class)
	}
}

func TestClassifyRuleOrdering(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		meanAbs float64
		zcr     float64
		noise   float64
		want    Class
	}{
		{"below very weak", 0.001, 0.1, 0.1, TooWeak},
		{"below silence", 0.005, 0.1, 0.1, Silence},
		{"close speech wins over speech thresholds", 0.03, 0.5, 0.1, CloseSpeech},
		{"close but high zcr falls through to distant", 0.03, 0.9, 0.1, DistantSpeech},
		{"speech requires low noise ratio", 0.015, 0.5, 0.1, Speech},
		{"speech rejected by noise ratio falls to distant", 0.015, 0.5, 0.95, DistantSpeech},
		{"distant speech", 0.009, 0.1, 0.1, DistantSpeech},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.meanAbs, tc.zcr, tc.noise, th)
			if got != tc.want {
				t.Fatalf("classify(%v,%v,%v) = %v, want %v", tc.meanAbs, tc.zcr, tc.noise, got, tc.want)
			}
		})
	}
}

func TestSpeechBandEnergyRatioBounded(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.1
	}
	ratio := speechBandEnergyRatio(samples, 16000)
	if ratio < 0 || ratio > 1 {
		t.Fatalf("ratio out of [0,1]: %v", ratio)
	}
}

func TestSpeechBandEnergyRatioEmptyIsZero(t *testing.T) {
	if r := speechBandEnergyRatio(nil, 16000); r != 0 {
		t.Fatalf("empty samples ratio = %v, want 0", r)
	}
	if r := speechBandEnergyRatio([]float32{0.1}, 0); r != 0 {
		t.Fatalf("zero sample rate ratio = %v, want 0", r)
	}
}
