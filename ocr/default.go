package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var defaultEngine Engine = &noopEngine{}

// DefaultEngine returns the default OCR engine. Importing the ocr/tesseract
// package replaces the initial no-op engine with Tesseract.
func DefaultEngine() Engine {
	return defaultEngine
}

// SetDefaultEngine sets the default OCR engine.
func SetDefaultEngine(engine Engine) {
	defaultEngine = engine
}

// InputFromFile reads an image file into an OCR input for the given 1-based
// slide number. The format is derived from the file extension.
func InputFromFile(path string, slide int, opts ...InputOption) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("read image %s: %w", path, err)
	}
	in := Input{
		ID:     fmt.Sprintf("slide-%d-%s", slide, filepath.Base(path)),
		Image:  data,
		Format: formatForExt(filepath.Ext(path)),
		Slide:  slide,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

// RecognizeFiles runs recognition over ordered slide image files; the i'th
// path belongs to slide i+1. If the engine supports batch operation, it is
// used; otherwise calls are executed sequentially.
func RecognizeFiles(ctx context.Context, engine Engine, paths []string, opts ...InputOption) ([]Result, error) {
	inputs := make([]Input, 0, len(paths))
	for i, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		in, err := InputFromFile(path, i+1, opts...)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

type noopEngine struct{}

func (noopEngine) Name() string { return "noop" }

func (noopEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{InputID: input.ID, Slide: input.Slide}, nil
}

func formatForExt(ext string) ImageFormat {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return ImageFormatJPEG
	case ".tif", ".tiff":
		return ImageFormatTIFF
	default:
		return ImageFormatPNG
	}
}
