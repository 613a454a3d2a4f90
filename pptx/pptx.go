package pptx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"

	relNS        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	slideRelType = relNS + "/slide"
	notesRelType = relNS + "/notesSlide"
)

// Slide holds the structured text extracted for one slide. Index is the
// 1-based position in the presentation's slide order.
type Slide struct {
	Index int
	Title string
	Body  string
	Notes string
}

// Extractor produces ordered Slide records from a presentation file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Slide, error)
}

// ParseError reports a presentation container that could not be read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse presentation %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader extracts slide text directly from the PPTX container (a ZIP archive
// of XML parts). Slide order follows the presentation's slide ID list, which
// may disagree with both archive entry order and lexicographic part names.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

func (r *Reader) Extract(ctx context.Context, file string) ([]Slide, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, &ParseError{Path: file, Err: err}
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	order, err := slideOrder(parts)
	if err != nil {
		return nil, &ParseError{Path: file, Err: err}
	}

	slides := make([]Slide, 0, len(order))
	for i, part := range order {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		s, err := readSlide(parts, part, i+1)
		if err != nil {
			return nil, &ParseError{Path: file, Err: err}
		}
		slides = append(slides, s)
	}
	return slides, nil
}

type presentationXML struct {
	SlideIDs []slideIDXML `xml:"sldIdLst>sldId"`
}

type slideIDXML struct {
	RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type relationshipsXML struct {
	Rels []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type slideXML struct {
	Shapes []shapeXML `xml:"cSld>spTree>sp"`
}

type shapeXML struct {
	Placeholder *placeholderXML `xml:"nvSpPr>nvPr>ph"`
	Paragraphs  []paragraphXML  `xml:"txBody>p"`
}

type placeholderXML struct {
	Type string `xml:"type,attr"`
}

type paragraphXML struct {
	Runs []runXML `xml:"r"`
}

type runXML struct {
	Text string `xml:"t"`
}

// slideOrder resolves the ordered slide part names by following the slide ID
// list through the presentation relationships.
func slideOrder(parts map[string]*zip.File) ([]string, error) {
	var pres presentationXML
	if err := decodePart(parts, presentationPart, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(parts, presentationRels, &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		if rel.Type == slideRelType {
			targets[rel.ID] = rel.Target
		}
	}

	order := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %s not found", id.RelID)
		}
		part := resolveTarget("ppt", target)
		if _, ok := parts[part]; !ok {
			return nil, fmt.Errorf("slide part %s not found", part)
		}
		order = append(order, part)
	}
	return order, nil
}

func readSlide(parts map[string]*zip.File, part string, index int) (Slide, error) {
	var sld slideXML
	if err := decodePart(parts, part, &sld); err != nil {
		return Slide{}, err
	}

	s := Slide{Index: index}
	var body []string
	for _, shape := range sld.Shapes {
		text := shapeText(shape)
		if text == "" {
			continue
		}
		if isTitle(shape) && s.Title == "" {
			s.Title = text
			continue
		}
		body = append(body, text)
	}
	s.Body = strings.Join(body, "\n")

	notes, err := readNotes(parts, part)
	if err != nil {
		return Slide{}, err
	}
	s.Notes = notes
	return s, nil
}

// readNotes returns the notes placeholder text for a slide part, or "" when
// the slide has no notes part.
func readNotes(parts map[string]*zip.File, slidePart string) (string, error) {
	relsPart := path.Join(path.Dir(slidePart), "_rels", path.Base(slidePart)+".rels")
	if _, ok := parts[relsPart]; !ok {
		return "", nil
	}
	var rels relationshipsXML
	if err := decodePart(parts, relsPart, &rels); err != nil {
		return "", err
	}

	var notesPart string
	for _, rel := range rels.Rels {
		if rel.Type == notesRelType {
			notesPart = resolveTarget(path.Dir(slidePart), rel.Target)
			break
		}
	}
	if notesPart == "" {
		return "", nil
	}

	var notes slideXML
	if err := decodePart(parts, notesPart, &notes); err != nil {
		return "", err
	}
	var out []string
	for _, shape := range notes.Shapes {
		if shape.Placeholder == nil || shape.Placeholder.Type != "body" {
			continue
		}
		if text := shapeText(shape); text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n"), nil
}

func decodePart(parts map[string]*zip.File, name string, v interface{}) error {
	f, ok := parts[name]
	if !ok {
		return fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode part %s: %w", name, err)
	}
	return nil
}

// shapeText joins the non-empty paragraphs of a shape, one line per
// paragraph. Run text within a paragraph concatenates without separators.
func shapeText(shape shapeXML) string {
	var lines []string
	for _, p := range shape.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			b.WriteString(r.Text)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isTitle(shape shapeXML) bool {
	if shape.Placeholder == nil {
		return false
	}
	return shape.Placeholder.Type == "title" || shape.Placeholder.Type == "ctrTitle"
}

// resolveTarget resolves a relationship target against the directory of the
// part that declares it. Targets are usually relative ("slides/slide1.xml",
// "../notesSlides/notesSlide1.xml") but absolute forms appear in the wild.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Clean(path.Join(baseDir, target))
}
