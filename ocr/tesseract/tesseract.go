package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/deckcheck/ocr"
)

func init() {
	ocr.SetDefaultEngine(NewEngine())
}

// Engine implements ocr.Engine and ocr.BatchEngine using the gosseract
// client as the default OCR provider. TessdataPrefix optionally points the
// engine at a trained-data directory (the TESSDATA_PREFIX override).
type Engine struct {
	clientFactory func() *gosseract.Client

	TessdataPrefix string
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single slide image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.clientFactory()
	defer c.Close()
	res, err := e.recognizeWithClient(ctx, c, in)
	if err != nil {
		return ocr.Result{}, &ocr.Error{Engine: e.Name(), Err: err}
	}
	return res, nil
}

// RecognizeBatch processes inputs sequentially on one client instance to
// amortize engine setup across slides.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	c := e.clientFactory()
	defer c.Close()
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := e.recognizeWithClient(ctx, c, in)
		if err != nil {
			return nil, &ocr.Error{Engine: e.Name(), Err: fmt.Errorf("recognize %s: %w", in.ID, err)}
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) recognizeWithClient(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	in, err := ocr.Prepare(in)
	if err != nil {
		return ocr.Result{}, err
	}
	if e.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	return ocr.Result{
		InputID:    in.ID,
		Slide:      in.Slide,
		Text:       strings.TrimSpace(text),
		Confidence: meanConfidence(c),
		Language:   firstLanguage(in.Languages),
	}, nil
}

// meanConfidence averages per-word confidence on a 0..1 scale. Best effort:
// zero when the provider reports no word boxes.
func meanConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

func firstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}
