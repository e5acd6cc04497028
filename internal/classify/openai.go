package classify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/michaelneale/goose-perception/internal/logger"
)

// openaiConfig holds the functional-options-configurable pieces of an
// OpenAIClassifier.
type openaiConfig struct {
	baseURL string
	timeout time.Duration
}

// Option configures an OpenAIClassifier at construction.
type Option func(*openaiConfig)

// WithBaseURL overrides the API base URL (for an OpenAI-compatible proxy).
func WithBaseURL(url string) Option {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithTimeout bounds each classification call.
func WithTimeout(d time.Duration) Option {
	return func(c *openaiConfig) { c.timeout = d }
}

// OpenAIClassifier is the pluggable reference implementation of the Address
// Classifier: it asks a small chat model to judge whether text is addressed
// to the assistant and to report a confidence in [0,1]. On any failure it
// degrades to RuleBasedClassifier rather than propagating an error, since
// Classifier.Classify has no error return (spec §4.6: "must not panic").
type OpenAIClassifier struct {
	client   openai.Client
	model    string
	cfg      openaiConfig
	fallback RuleBasedClassifier
	log      *logger.ContextLogger
}

// NewOpenAIClassifier builds an OpenAIClassifier. apiKey and model must be
// non-empty.
func NewOpenAIClassifier(apiKey, model string, log *logger.ContextLogger, opts ...Option) (*OpenAIClassifier, error) {
	cfg := openaiConfig{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIClassifier{
		client: openai.NewClient(reqOpts...),
		model:  model,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Classify implements Classifier. Pathological (empty) input short-circuits
// to {false, 0.0} per the general contract without spending an API call;
// any transport or parse failure falls back to the rule-based classifier
// with a logged warning, matching spec §7's ModelLoadError/degrade policy.
func (o *OpenAIClassifier) Classify(text string) (bool, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, 0.0
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(
				"Decide whether the given utterance is a request addressed to an assistant named Goose. " +
					"Reply with exactly two lines: 'addressed: true' or 'addressed: false', then 'confidence: ' " +
					"followed by a number between 0 and 1.",
			),
			openai.UserMessage(trimmed),
		},
	})
	if err != nil {
		o.log.Warnf("openai classify failed, falling back to rule-based: %v", err)
		return o.fallback.Classify(text)
	}
	if len(resp.Choices) == 0 {
		o.log.Warnf("openai classify returned no choices, falling back to rule-based")
		return o.fallback.Classify(text)
	}

	addressed, confidence, ok := parseVerdict(resp.Choices[0].Message.Content)
	if !ok {
		o.log.Warnf("openai classify returned unparsable verdict, falling back to rule-based")
		return o.fallback.Classify(text)
	}
	return addressed, confidence
}

func parseVerdict(body string) (addressed bool, confidence float64, ok bool) {
	lower := strings.ToLower(body)
	foundAddressed := false
	for _, line := range strings.Split(lower, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "addressed:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "addressed:"))
			addressed = v == "true"
			foundAddressed = true
		case strings.HasPrefix(line, "confidence:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "confidence:"))
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				confidence = f
				ok = foundAddressed
			}
		}
	}
	return addressed, confidence, ok
}
