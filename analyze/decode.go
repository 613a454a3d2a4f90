package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeFindings parses a model reply into findings. Replies are expected to
// be a bare JSON array, but models wrap output in code fences or prose often
// enough that decoding tries progressively more forgiving extraction before
// giving up with a ResponseFormatError.
func DecodeFindings(raw string) ([]Finding, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ResponseFormatError{Raw: raw, Err: errors.New("empty reply")}
	}

	var lastErr error
	for _, candidate := range decodeCandidates(trimmed) {
		findings, err := parseFindings(candidate)
		if err == nil {
			return findings, nil
		}
		lastErr = err
	}
	return nil, &ResponseFormatError{Raw: raw, Err: lastErr}
}

// decodeCandidates orders the reply fragments to attempt parsing on. The
// balanced extraction starts at whichever JSON delimiter appears first, so
// a partially malformed array fails loudly instead of quietly shrinking to
// the first object inside it.
func decodeCandidates(s string) []string {
	out := []string{stripCodeFences(s)}
	arrAt := strings.IndexByte(s, '[')
	objAt := strings.IndexByte(s, '{')
	switch {
	case arrAt >= 0 && (objAt < 0 || arrAt < objAt):
		if arr := extractDelimited(s, '[', ']'); arr != "" {
			out = append(out, arr)
		}
	case objAt >= 0:
		if obj := extractDelimited(s, '{', '}'); obj != "" {
			out = append(out, obj)
		}
	}
	return out
}

// stripCodeFences unwraps ```json ... ``` style fencing.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractDelimited returns the first balanced opener..closer region,
// honoring JSON string quoting and escapes, or "" when none exists.
func extractDelimited(s string, opener, closer byte) string {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// rawFinding tolerates the field aliases older prompts used (type,
// slide_numbers) while still distinguishing absent fields from zero values.
type rawFinding struct {
	Kind         *string  `json:"kind"`
	Type         *string  `json:"type"`
	Slides       []int    `json:"slides"`
	SlideNumbers []int    `json:"slide_numbers"`
	Description  *string  `json:"description"`
	Confidence   *float64 `json:"confidence"`
}

func (r rawFinding) finding() (Finding, error) {
	kind := r.Kind
	if kind == nil {
		kind = r.Type
	}
	if kind == nil || *kind == "" {
		return Finding{}, errors.New("missing kind")
	}
	slides := r.Slides
	if slides == nil {
		slides = r.SlideNumbers
	}
	if slides == nil {
		return Finding{}, errors.New("missing slides")
	}
	if r.Description == nil || *r.Description == "" {
		return Finding{}, errors.New("missing description")
	}
	if r.Confidence == nil {
		return Finding{}, errors.New("missing confidence")
	}
	return Finding{
		Kind:        *kind,
		Slides:      slides,
		Description: *r.Description,
		Confidence:  *r.Confidence,
	}, nil
}

func parseFindings(s string) ([]Finding, error) {
	var raws []rawFinding
	if err := json.Unmarshal([]byte(s), &raws); err != nil {
		var one rawFinding
		if err2 := json.Unmarshal([]byte(s), &one); err2 != nil {
			return nil, err
		}
		raws = []rawFinding{one}
	}
	findings := make([]Finding, 0, len(raws))
	for i, r := range raws {
		f, err := r.finding()
		if err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		findings = append(findings, f)
	}
	return findings, nil
}
