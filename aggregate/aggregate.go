package aggregate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wudi/deckcheck/pptx"
)

const imageContentHeader = "[IMAGE CONTENT]"

// Segment is one slide's share of an aggregated blob.
type Segment struct {
	Index int
	Text  string
}

// Build renders slide records and their OCR text into the single prompt
// blob sent for analysis. Slide-boundary markers are preserved so findings
// can be attributed back to slide numbers. ocrTexts must be empty (no OCR
// contribution) or hold exactly one entry per slide.
//
// The output is deterministic: identical inputs produce byte-identical
// blobs.
func Build(slides []pptx.Slide, ocrTexts []string) (string, error) {
	if len(ocrTexts) != 0 && len(ocrTexts) != len(slides) {
		return "", fmt.Errorf("ocr text count %d does not match %d slides", len(ocrTexts), len(slides))
	}
	segments := make([]string, 0, len(slides))
	for i, slide := range slides {
		var ocrText string
		if len(ocrTexts) > 0 {
			ocrText = ocrTexts[i]
		}
		segments = append(segments, segment(slide, ocrText, i+1))
	}
	return strings.Join(segments, "\n\n"), nil
}

func segment(s pptx.Slide, ocrText string, position int) string {
	n := s.Index
	if n <= 0 {
		n = position
	}

	var lines []string
	if s.Title != "" {
		lines = append(lines, "Title: "+s.Title)
	}
	if s.Body != "" {
		lines = append(lines, s.Body)
	}
	if s.Notes != "" {
		lines = append(lines, "Notes: "+s.Notes)
	}
	body := strings.Join(lines, "\n")

	if o := strings.TrimSpace(ocrText); o != "" {
		body = body + "\n\n" + imageContentHeader + "\n" + o
	}
	return fmt.Sprintf("--- Slide %d ---\n%s", n, body)
}

var markerPattern = regexp.MustCompile(`(?m)^--- Slide (\d+) ---$`)

// Split parses a blob back into ordered segments. It fails when no markers
// are present, when text precedes the first marker, or when marker numbers
// are not strictly ascending.
func Split(blob string) ([]Segment, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, nil
	}
	locs := markerPattern.FindAllStringSubmatchIndex(blob, -1)
	if len(locs) == 0 {
		return nil, errors.New("no slide markers found")
	}
	if strings.TrimSpace(blob[:locs[0][0]]) != "" {
		return nil, errors.New("text precedes first slide marker")
	}

	segments := make([]Segment, 0, len(locs))
	last := 0
	for k, loc := range locs {
		n, err := strconv.Atoi(blob[loc[2]:loc[3]])
		if err != nil {
			return nil, fmt.Errorf("marker number: %w", err)
		}
		if n <= last {
			return nil, fmt.Errorf("marker %d out of sequence after %d", n, last)
		}
		last = n

		start := loc[1]
		end := len(blob)
		if k+1 < len(locs) {
			end = locs[k+1][0]
		}
		text := strings.TrimPrefix(blob[start:end], "\n")
		if k+1 < len(locs) {
			text = strings.TrimSuffix(text, "\n\n")
		} else {
			text = strings.TrimSuffix(text, "\n")
		}
		segments = append(segments, Segment{Index: n, Text: text})
	}
	return segments, nil
}
