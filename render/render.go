package render

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// lookPath is stubbed in tests.
var lookPath = exec.LookPath

// Converter turns a presentation file into a PDF inside outDir and returns
// the PDF path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outDir string) (string, error)
}

// Rasterizer renders each PDF page to an image file inside outDir and
// returns the image paths ordered by page position.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// ConversionError reports a failed presentation-to-PDF conversion.
type ConversionError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	return toolError("convert", e.Tool, e.Output, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// RasterizationError reports a failed PDF-to-image rendering.
type RasterizationError struct {
	Tool   string
	Output string
	Err    error
}

func (e *RasterizationError) Error() string {
	return toolError("rasterize", e.Tool, e.Output, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

func toolError(verb, tool, output string, err error) string {
	if output != "" {
		return fmt.Sprintf("%s with %s: %v: %s", verb, tool, err, output)
	}
	return fmt.Sprintf("%s with %s: %v", verb, tool, err)
}

// diagnostic trims external-tool output for error messages, keeping the
// trailing lines where conversion binaries report their actual failure.
func diagnostic(out []byte) string {
	s := strings.TrimSpace(string(out))
	const keep = 6
	lines := strings.Split(s, "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n")
}
