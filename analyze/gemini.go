package analyze

import (
	"context"
	"errors"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wudi/deckcheck/observability"
)

// DefaultModel is used when the caller does not pick a model.
const DefaultModel = "gemini-1.5-flash-latest"

const defaultMaxAttempts = 3

// Gemini analyzes deck text with the Google Gemini API.
type Gemini struct {
	apiKey      string
	model       string
	maxAttempts int
	logger      observability.Logger
	clientOpts  []option.ClientOption
}

// GeminiOption configures a Gemini analyzer.
type GeminiOption func(*Gemini)

// WithLogger routes retry and reply diagnostics to l.
func WithLogger(l observability.Logger) GeminiOption {
	return func(g *Gemini) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxAttempts caps GenerateContent calls per Analyze, counting the
// first one.
func WithMaxAttempts(n int) GeminiOption {
	return func(g *Gemini) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithClientOptions appends options for the underlying API client. Tests
// use this to point the client at a local fake.
func WithClientOptions(opts ...option.ClientOption) GeminiOption {
	return func(g *Gemini) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}

// NewGemini returns an analyzer backed by the Gemini API. The key is
// checked up front so a missing credential fails before any network use.
func NewGemini(apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, &AuthError{Err: ErrMissingAPIKey}
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	g := &Gemini{
		apiKey:      key,
		model:       model,
		maxAttempts: defaultMaxAttempts,
		logger:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Analyze submits the aggregated deck text and decodes the reply into
// findings.
func (g *Gemini) Analyze(ctx context.Context, deck string) ([]Finding, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.clientOpts...)
	cl, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, classify(err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	g.logger.Debug("submitting deck",
		observability.String("model", g.model),
		observability.Int(observability.MetricPromptBytes, len(deck)))

	raw, err := g.generate(ctx, m, deck)
	if err != nil {
		return nil, err
	}
	findings, err := DecodeFindings(raw)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("reply decoded",
		observability.Int(observability.MetricFindingCount, len(findings)),
		observability.Int("reply_bytes", len(raw)))
	return findings, nil
}

// generate calls the model, retrying quota and network failures with
// exponential backoff. Auth failures and empty replies are permanent.
func (g *Gemini) generate(ctx context.Context, m *genai.GenerativeModel, deck string) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		resp, err := m.GenerateContent(ctx, genai.Text(deck))
		if err != nil {
			cerr := classify(err)
			if !retryable(cerr) {
				return "", backoff.Permanent(cerr)
			}
			g.logger.Warn("model call failed",
				observability.Int("attempt", attempt),
				observability.Error("err", cerr))
			return "", cerr
		}
		txt := firstText(resp)
		if strings.TrimSpace(txt) == "" {
			return "", backoff.Permanent(&ResponseFormatError{Raw: txt, Err: errors.New("empty reply")})
		}
		return txt, nil
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.maxAttempts-1)),
		ctx,
	)
	return backoff.RetryWithData(op, bo)
}

// classify maps transport failures onto the analyzer error types. Context
// cancellation passes through untouched so callers can match it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return &AuthError{Err: err}
		case 429:
			return &QuotaError{Err: err}
		}
		return &NetworkError{Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "unauthenticated"):
		return &AuthError{Err: err}
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "rate limit"):
		return &QuotaError{Err: err}
	}
	return &NetworkError{Err: err}
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	var qerr *QuotaError
	var nerr *NetworkError
	return errors.As(err, &qerr) || errors.As(err, &nerr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
