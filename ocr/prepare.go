package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Prepare enforces the input's pixel budget. Images above MaxPixels are
// downscaled with Catmull-Rom interpolation and re-encoded as PNG; images
// within budget pass through untouched. A declared DPI is rescaled along
// with the image so engine layout heuristics stay consistent.
func Prepare(in Input) (Input, error) {
	if in.MaxPixels <= 0 || len(in.Image) == 0 {
		return in, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Image))
	if err != nil {
		return Input{}, fmt.Errorf("decode image config: %w", err)
	}
	pixels := cfg.Width * cfg.Height
	if pixels <= in.MaxPixels {
		return in, nil
	}

	img, _, err := image.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return Input{}, fmt.Errorf("decode image: %w", err)
	}
	scale := math.Sqrt(float64(in.MaxPixels) / float64(pixels))
	w := max(int(float64(cfg.Width)*scale), 1)
	h := max(int(float64(cfg.Height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Input{}, fmt.Errorf("encode scaled image: %w", err)
	}

	out := in
	out.Image = buf.Bytes()
	out.Format = ImageFormatPNG
	if in.DPI > 0 {
		out.DPI = max(int(float64(in.DPI)*scale), 1)
	}
	return out, nil
}
