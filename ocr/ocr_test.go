package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeEngine struct {
	inputs []Input
	err    error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	if f.err != nil {
		return Result{}, f.err
	}
	f.inputs = append(f.inputs, in)
	return Result{InputID: in.ID, Slide: in.Slide, Text: fmt.Sprintf("text-%d", in.Slide)}, nil
}

type fakeBatchEngine struct {
	fakeEngine
	batches int
}

func (f *fakeBatchEngine) RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error) {
	f.batches++
	out := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, Result{InputID: in.ID, Slide: in.Slide})
	}
	return out, nil
}

func writeImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("image-bytes-"+name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestInputFromFile(t *testing.T) {
	paths := writeImages(t, "page-02.png")

	in, err := InputFromFile(paths[0], 2, WithLanguages("eng", "deu"), WithDPI(200), WithMaxPixels(1<<20))
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.ID != "slide-2-page-02.png" {
		t.Fatalf("id = %q", in.ID)
	}
	if in.Slide != 2 || in.Format != ImageFormatPNG || in.DPI != 200 || in.MaxPixels != 1<<20 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if len(in.Languages) != 2 || in.Languages[0] != "eng" {
		t.Fatalf("languages = %v", in.Languages)
	}
	if string(in.Image) != "image-bytes-page-02.png" {
		t.Fatalf("payload not read")
	}
}

func TestFormatForExt(t *testing.T) {
	cases := map[string]ImageFormat{
		".png":  ImageFormatPNG,
		".JPG":  ImageFormatJPEG,
		".jpeg": ImageFormatJPEG,
		".tif":  ImageFormatTIFF,
		".tiff": ImageFormatTIFF,
		"":      ImageFormatPNG,
	}
	for ext, want := range cases {
		if got := formatForExt(ext); got != want {
			t.Errorf("formatForExt(%q) = %v, want %v", ext, got, want)
		}
	}
}

func TestWithTesseractPSM(t *testing.T) {
	var in Input
	WithTesseractPSM(6)(&in)
	if in.Metadata["tessedit_pageseg_mode"] != "6" {
		t.Fatalf("metadata = %v", in.Metadata)
	}
}

func TestWithMetadataCopies(t *testing.T) {
	src := map[string]string{"k": "v"}
	var in Input
	WithMetadata(src)(&in)
	src["k"] = "changed"
	if in.Metadata["k"] != "v" {
		t.Fatalf("metadata aliased caller map: %v", in.Metadata)
	}
}

func TestRecognizeFilesSequential(t *testing.T) {
	paths := writeImages(t, "page-1.png", "page-2.png", "page-3.png")
	eng := &fakeEngine{}

	results, err := RecognizeFiles(context.Background(), eng, paths, WithLanguages("eng"))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Slide != i+1 {
			t.Errorf("result %d: slide = %d", i, res.Slide)
		}
	}
	if len(eng.inputs) != 3 || eng.inputs[0].Languages[0] != "eng" {
		t.Fatalf("inputs not built with options: %+v", eng.inputs)
	}
}

func TestRecognizeFilesBatch(t *testing.T) {
	paths := writeImages(t, "page-1.png", "page-2.png")
	eng := &fakeBatchEngine{}

	results, err := RecognizeFiles(context.Background(), eng, paths)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if eng.batches != 1 {
		t.Fatalf("expected one batch call, got %d", eng.batches)
	}
	if len(results) != 2 || results[1].Slide != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRecognizeFilesCanceled(t *testing.T) {
	paths := writeImages(t, "page-1.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RecognizeFiles(ctx, &fakeEngine{}, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecognizeFilesMissingFile(t *testing.T) {
	_, err := RecognizeFiles(context.Background(), &fakeEngine{}, []string{filepath.Join(t.TempDir(), "absent.png")})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRecognizeFilesEngineFailure(t *testing.T) {
	paths := writeImages(t, "page-1.png")
	boom := &Error{Engine: "fake", Err: errors.New("engine exploded")}

	_, err := RecognizeFiles(context.Background(), &fakeEngine{err: boom}, paths)
	var oerr *Error
	if !errors.As(err, &oerr) {
		t.Fatalf("expected ocr.Error, got %v", err)
	}
}

func TestDefaultEngineRegistry(t *testing.T) {
	old := DefaultEngine()
	defer SetDefaultEngine(old)

	eng := &fakeEngine{}
	SetDefaultEngine(eng)
	if DefaultEngine() != Engine(eng) {
		t.Fatalf("default engine not replaced")
	}
}

func TestNoopEngine(t *testing.T) {
	res, err := (noopEngine{}).Recognize(context.Background(), Input{ID: "slide-1-x.png", Slide: 1})
	if err != nil {
		t.Fatalf("noop: %v", err)
	}
	if res.Text != "" || res.Slide != 1 {
		t.Fatalf("unexpected noop result: %+v", res)
	}
}
