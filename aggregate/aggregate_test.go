package aggregate

import (
	"strings"
	"testing"

	"github.com/wudi/deckcheck/pptx"
)

func sampleSlides() []pptx.Slide {
	return []pptx.Slide{
		{Index: 1, Title: "Q3 Results", Body: "Revenue: $10M", Notes: "check the numbers"},
		{Index: 2, Title: "Outlook"},
		{Index: 3, Body: "Ship in March\nGA in April"},
	}
}

func TestBuildLayout(t *testing.T) {
	blob, err := Build(sampleSlides(), []string{"chart: $10M", "", "timeline graphic"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "--- Slide 1 ---\n" +
		"Title: Q3 Results\n" +
		"Revenue: $10M\n" +
		"Notes: check the numbers\n" +
		"\n" +
		"[IMAGE CONTENT]\n" +
		"chart: $10M\n" +
		"\n" +
		"--- Slide 2 ---\n" +
		"Title: Outlook\n" +
		"\n" +
		"--- Slide 3 ---\n" +
		"Ship in March\nGA in April\n" +
		"\n" +
		"[IMAGE CONTENT]\n" +
		"timeline graphic"
	if blob != want {
		t.Fatalf("blob mismatch:\n got: %q\nwant: %q", blob, want)
	}
}

func TestBuildOrderPreserving(t *testing.T) {
	blob, err := Build(sampleSlides(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	i1 := strings.Index(blob, "--- Slide 1 ---")
	i2 := strings.Index(blob, "--- Slide 2 ---")
	i3 := strings.Index(blob, "--- Slide 3 ---")
	if i1 < 0 || i2 < 0 || i3 < 0 || !(i1 < i2 && i2 < i3) {
		t.Fatalf("markers out of order: %d %d %d", i1, i2, i3)
	}
}

func TestBuildIdempotent(t *testing.T) {
	ocr := []string{"a", "b", "c"}
	first, err := Build(sampleSlides(), ocr)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := Build(sampleSlides(), ocr)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if first != second {
		t.Fatalf("blob not byte-identical across runs")
	}
}

func TestBuildWithoutOCR(t *testing.T) {
	blob, err := Build(sampleSlides(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(blob, imageContentHeader) {
		t.Fatalf("unexpected image section: %q", blob)
	}
}

func TestBuildCountMismatch(t *testing.T) {
	if _, err := Build(sampleSlides(), []string{"only one"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestBuildImageOnlySlide(t *testing.T) {
	slides := []pptx.Slide{{Index: 1}}
	blob, err := Build(slides, []string{"Q4 Forecast"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(blob, "[IMAGE CONTENT]\nQ4 Forecast") {
		t.Fatalf("ocr text missing from blob: %q", blob)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	slides := sampleSlides()
	blob, err := Build(slides, []string{"chart: $10M", "", "timeline graphic"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	segments, err := Split(blob)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(segments) != len(slides) {
		t.Fatalf("expected %d segments, got %d", len(slides), len(segments))
	}
	for i, seg := range segments {
		if seg.Index != i+1 {
			t.Errorf("segment %d: index = %d", i, seg.Index)
		}
	}
	if !strings.Contains(segments[0].Text, "Revenue: $10M") {
		t.Fatalf("segment 1 text: %q", segments[0].Text)
	}
	if segments[1].Text != "Title: Outlook" {
		t.Fatalf("segment 2 text: %q", segments[1].Text)
	}
	if !strings.HasSuffix(segments[2].Text, "timeline graphic") {
		t.Fatalf("segment 3 text: %q", segments[2].Text)
	}
}

func TestSplitEmptySegments(t *testing.T) {
	slides := []pptx.Slide{{Index: 1}, {Index: 2}, {Index: 3, Title: "End"}}
	blob, err := Build(slides, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	segments, err := Split(blob)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Text != "" || segments[1].Text != "" {
		t.Fatalf("empty slides should yield empty segments: %+v", segments)
	}
	if segments[2].Text != "Title: End" {
		t.Fatalf("segment 3 text: %q", segments[2].Text)
	}
}

func TestSplitRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"no markers":     "just some text",
		"preamble":       "leading junk\n--- Slide 1 ---\nbody",
		"out of order":   "--- Slide 2 ---\nb\n\n--- Slide 1 ---\na",
		"repeated index": "--- Slide 1 ---\na\n\n--- Slide 1 ---\nb",
	}
	for name, blob := range cases {
		if _, err := Split(blob); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSplitEmptyBlob(t *testing.T) {
	segments, err := Split("   \n ")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %+v", segments)
	}
}
