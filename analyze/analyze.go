package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind values reported by the analysis.
const (
	KindNumerical = "numerical"
	KindTextual   = "textual"
	KindTimeline  = "timeline"
	KindLogical   = "logical"
)

// Finding is one cross-slide inconsistency reported by the model. Fields
// are reproduced verbatim into the output report.
type Finding struct {
	Kind        string  `json:"kind"`
	Slides      []int   `json:"slides"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// KnownKind reports whether k is one of the documented finding kinds.
func KnownKind(k string) bool {
	switch k {
	case KindNumerical, KindTextual, KindTimeline, KindLogical:
		return true
	}
	return false
}

// OutOfRange returns the slide references outside 1..slideCount.
func (f Finding) OutOfRange(slideCount int) []int {
	var out []int
	for _, n := range f.Slides {
		if n < 1 || n > slideCount {
			out = append(out, n)
		}
	}
	return out
}

// Analyzer submits an aggregated deck blob for inconsistency analysis.
type Analyzer interface {
	Analyze(ctx context.Context, deck string) ([]Finding, error)
}

// ErrMissingAPIKey signals that no credential was supplied.
var ErrMissingAPIKey = errors.New("missing API key")

// AuthError reports a missing or rejected API credential.
type AuthError struct{ Err error }

func (e *AuthError) Error() string { return fmt.Sprintf("authentication: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// QuotaError reports rate or quota exhaustion at the API.
type QuotaError struct{ Err error }

func (e *QuotaError) Error() string { return fmt.Sprintf("quota exceeded: %v", e.Err) }
func (e *QuotaError) Unwrap() error { return e.Err }

// NetworkError reports a transport-level failure talking to the API.
type NetworkError struct{ Err error }

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseFormatError reports a reply that is not valid JSON or is missing
// expected fields. Raw preserves the offending reply for debugging.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("response format: %v", e.Err)
	}
	return fmt.Sprintf("response format: %v (reply: %s)", e.Err, preview(e.Raw))
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

func preview(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	const limit = 160
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
