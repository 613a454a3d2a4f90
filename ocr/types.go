package ocr

import (
	"context"
	"fmt"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Input encapsulates a single slide image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// Slide links the input back to the 1-based slide number the image
	// renders.
	Slide int
	// DPI carries the effective dots-per-inch of the rendered image.
	// Providers such as Tesseract use this for scaling and layout
	// heuristics; zero means unknown.
	DPI int
	// Languages is a list of trained-data hints (e.g., "eng", "deu") that
	// providers can use to select models.
	Languages []string
	// MaxPixels caps the pixel count fed to the engine; oversized images are
	// downscaled first (see Prepare). Zero means no cap.
	MaxPixels int
	// Metadata allows callers to pass through engine-specific knobs (e.g.,
	// "tessedit_pageseg_mode" for Tesseract) without hard-coding them into
	// the API surface.
	Metadata map[string]string
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// Slide mirrors Input.Slide.
	Slide int
	// Text contains the recognized text, trimmed. Empty text is a valid
	// result for images without legible content.
	Text string
	// Confidence is the mean per-word confidence in [0,1]; zero when the
	// provider reports none.
	Confidence float64
	// Language indicates the primary language hint applied, if any.
	Language string
}

// Engine is the simplest OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine handles multiple images in a single call, enabling providers
// that amortize setup costs or remote round-trips.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}

// Error reports an unavailable engine or a failed recognition call. Empty
// recognition output is not an error and is never wrapped in this type.
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("ocr %s: %v", e.Engine, e.Err) }
func (e *Error) Unwrap() error { return e.Err }
