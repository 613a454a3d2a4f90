package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	presNS    = "http://schemas.openxmlformats.org/presentationml/2006/main"
	drawNS    = "http://schemas.openxmlformats.org/drawingml/2006/main"
	packRelNS = "http://schemas.openxmlformats.org/package/2006/relationships"
)

func deckFile(t *testing.T, parts map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	return path
}

func presentationDoc(relIDs ...string) string {
	var ids strings.Builder
	for i, rid := range relIDs {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)
	}
	return fmt.Sprintf(`<p:presentation xmlns:p=%q xmlns:r=%q><p:sldIdLst>%s</p:sldIdLst></p:presentation>`,
		presNS, relNS, ids.String())
}

func relationshipsDoc(rels map[string][2]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<Relationships xmlns=%q>`, packRelNS)
	for id, tt := range rels {
		fmt.Fprintf(&b, `<Relationship Id=%q Type=%q Target=%q/>`, id, tt[0], tt[1])
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func slideDoc(title string, body ...string) string {
	var shapes strings.Builder
	if title != "" {
		fmt.Fprintf(&shapes,
			`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
			title)
	}
	for _, text := range body {
		shapes.WriteString(`<p:sp><p:nvSpPr><p:nvPr/></p:nvSpPr><p:txBody>`)
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(&shapes, `<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, line)
		}
		shapes.WriteString(`</p:txBody></p:sp>`)
	}
	return fmt.Sprintf(`<p:sld xmlns:p=%q xmlns:a=%q><p:cSld><p:spTree>%s</p:spTree></p:cSld></p:sld>`,
		presNS, drawNS, shapes.String())
}

func notesDoc(notes string) string {
	return fmt.Sprintf(`<p:notes xmlns:p=%q xmlns:a=%q><p:cSld><p:spTree>`+
		`<p:sp><p:nvSpPr><p:nvPr><p:ph type="sldNum"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>7</a:t></a:r></a:p></p:txBody></p:sp>`+
		`<p:sp><p:nvSpPr><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`+
		`</p:spTree></p:cSld></p:notes>`, presNS, drawNS, notes)
}

// threeSlideDeck builds a deck whose slide ID list intentionally disagrees
// with the numeric order of the part names.
func threeSlideDeck(t *testing.T) string {
	t.Helper()
	return deckFile(t, map[string]string{
		"ppt/presentation.xml": presentationDoc("rId3", "rId1", "rId2"),
		"ppt/_rels/presentation.xml.rels": relationshipsDoc(map[string][2]string{
			"rId1": {slideRelType, "slides/slide1.xml"},
			"rId2": {slideRelType, "slides/slide2.xml"},
			"rId3": {slideRelType, "slides/slide3.xml"},
		}),
		"ppt/slides/slide1.xml": slideDoc("Second", "beta"),
		"ppt/slides/slide2.xml": slideDoc("Third", "gamma"),
		"ppt/slides/slide3.xml": slideDoc("First", "alpha"),
		"ppt/slides/_rels/slide3.xml.rels": relationshipsDoc(map[string][2]string{
			"rId1": {notesRelType, "../notesSlides/notesSlide1.xml"},
		}),
		"ppt/notesSlides/notesSlide1.xml": notesDoc("Check the revenue number"),
	})
}

func TestExtractReturnsAllSlidesInOrder(t *testing.T) {
	path := threeSlideDeck(t)

	slides, err := NewReader().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	wantTitles := []string{"First", "Second", "Third"}
	wantBodies := []string{"alpha", "beta", "gamma"}
	for i, s := range slides {
		if s.Index != i+1 {
			t.Errorf("slide %d: index = %d", i, s.Index)
		}
		if s.Title != wantTitles[i] {
			t.Errorf("slide %d: title = %q, want %q", i+1, s.Title, wantTitles[i])
		}
		if s.Body != wantBodies[i] {
			t.Errorf("slide %d: body = %q, want %q", i+1, s.Body, wantBodies[i])
		}
	}
}

func TestExtractNotes(t *testing.T) {
	path := threeSlideDeck(t)

	slides, err := NewReader().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if slides[0].Notes != "Check the revenue number" {
		t.Fatalf("slide 1 notes = %q", slides[0].Notes)
	}
	if strings.Contains(slides[0].Notes, "7") {
		t.Fatalf("slide number placeholder leaked into notes: %q", slides[0].Notes)
	}
	if slides[1].Notes != "" {
		t.Fatalf("slide 2 should have no notes, got %q", slides[1].Notes)
	}
}

func TestExtractMultiParagraphBody(t *testing.T) {
	path := deckFile(t, map[string]string{
		"ppt/presentation.xml": presentationDoc("rId1"),
		"ppt/_rels/presentation.xml.rels": relationshipsDoc(map[string][2]string{
			"rId1": {slideRelType, "slides/slide1.xml"},
		}),
		"ppt/slides/slide1.xml": slideDoc("Plan", "first line\nsecond line", "third shape"),
	})

	slides, err := NewReader().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "first line\nsecond line\nthird shape"
	if slides[0].Body != want {
		t.Fatalf("body = %q, want %q", slides[0].Body, want)
	}
	if strings.Contains(slides[0].Body, "Plan") {
		t.Fatalf("title duplicated into body: %q", slides[0].Body)
	}
}

func TestExtractEmptySlide(t *testing.T) {
	path := deckFile(t, map[string]string{
		"ppt/presentation.xml": presentationDoc("rId1"),
		"ppt/_rels/presentation.xml.rels": relationshipsDoc(map[string][2]string{
			"rId1": {slideRelType, "slides/slide1.xml"},
		}),
		"ppt/slides/slide1.xml": slideDoc(""),
	})

	slides, err := NewReader().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if slides[0].Title != "" || slides[0].Body != "" || slides[0].Notes != "" {
		t.Fatalf("expected empty record, got %+v", slides[0])
	}
}

func TestExtractNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pptx")
	if err := os.WriteFile(path, []byte("not a presentation"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewReader().Extract(context.Background(), path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Fatalf("ParseError path = %q, want %q", perr.Path, path)
	}
}

func TestExtractMissingPresentationPart(t *testing.T) {
	path := deckFile(t, map[string]string{
		"ppt/slides/slide1.xml": slideDoc("Only"),
	})

	_, err := NewReader().Extract(context.Background(), path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestExtractDanglingRelationship(t *testing.T) {
	path := deckFile(t, map[string]string{
		"ppt/presentation.xml": presentationDoc("rId1", "rId9"),
		"ppt/_rels/presentation.xml.rels": relationshipsDoc(map[string][2]string{
			"rId1": {slideRelType, "slides/slide1.xml"},
		}),
		"ppt/slides/slide1.xml": slideDoc("Present"),
	})

	_, err := NewReader().Extract(context.Background(), path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(err.Error(), "rId9") {
		t.Fatalf("error should name the dangling relationship: %v", err)
	}
}
