// Package pipeline orchestrates the extract, convert, rasterize, OCR, and
// analyze stages of a deck check.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wudi/deckcheck/aggregate"
	"github.com/wudi/deckcheck/analyze"
	"github.com/wudi/deckcheck/config"
	"github.com/wudi/deckcheck/observability"
	"github.com/wudi/deckcheck/ocr"
	"github.com/wudi/deckcheck/pptx"
	"github.com/wudi/deckcheck/render"
)

const defaultDPI = 200

// Result carries everything a run produced.
type Result struct {
	Slides   []pptx.Slide
	Findings []analyze.Finding

	// WorkDir points at the retained conversion artifacts. Empty unless
	// artifact retention is on.
	WorkDir string
}

// Pipeline holds the five stage capabilities and run settings.
type Pipeline struct {
	extractor  pptx.Extractor
	converter  render.Converter
	rasterizer render.Rasterizer
	engine     ocr.Engine
	analyzer   analyze.Analyzer
	logger     observability.Logger
	tracer     observability.Tracer

	dpi           int
	languages     []string
	maxPixels     int
	workDir       string
	keepArtifacts bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractor replaces the slide extractor.
func WithExtractor(e pptx.Extractor) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithConverter replaces the document converter.
func WithConverter(c render.Converter) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.converter = c
		}
	}
}

// WithRasterizer replaces the page rasterizer.
func WithRasterizer(r render.Rasterizer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.rasterizer = r
		}
	}
}

// WithEngine replaces the OCR engine.
func WithEngine(e ocr.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithAnalyzer replaces the inconsistency analyzer.
func WithAnalyzer(a analyze.Analyzer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// WithLogger routes run diagnostics to l.
func WithLogger(l observability.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer opens one span per stage on t.
func WithTracer(t observability.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithDPI sets the rasterization and OCR resolution.
func WithDPI(dpi int) Option {
	return func(p *Pipeline) {
		if dpi > 0 {
			p.dpi = dpi
		}
	}
}

// WithLanguages sets the OCR languages.
func WithLanguages(langs ...string) Option {
	return func(p *Pipeline) {
		p.languages = append([]string(nil), langs...)
	}
}

// WithMaxPixels caps the pixel count of images handed to OCR.
func WithMaxPixels(n int) Option {
	return func(p *Pipeline) {
		p.maxPixels = n
	}
}

// WithWorkDir places run-scoped temp directories under dir instead of the
// system default.
func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		p.workDir = dir
	}
}

// WithKeepArtifacts retains the intermediate PDF and page images after the
// run.
func WithKeepArtifacts(keep bool) Option {
	return func(p *Pipeline) {
		p.keepArtifacts = keep
	}
}

// New constructs a pipeline. Stages not overridden by options use the
// production extractor, converter, rasterizer, and the registered default
// OCR engine; the analyzer has no default and must be supplied.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:  pptx.NewReader(),
		converter:  &render.Soffice{},
		rasterizer: &render.Pdftoppm{},
		engine:     ocr.DefaultEngine(),
		logger:     observability.NopLogger{},
		tracer:     observability.NopTracer(),
		dpi:        defaultDPI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDefault assembles the production stack from cfg. A missing API key
// fails here, before any network or tool use.
func NewDefault(cfg config.Config, opts ...Option) (*Pipeline, error) {
	base := []Option{
		WithConverter(&render.Soffice{Binary: cfg.SofficeBinary}),
		WithRasterizer(&render.Pdftoppm{Dir: cfg.PopplerDir, DPI: cfg.DPI}),
		WithDPI(cfg.DPI),
		WithLanguages(cfg.Languages...),
		WithMaxPixels(cfg.MaxPixels),
		WithWorkDir(cfg.WorkDir),
		WithKeepArtifacts(cfg.KeepArtifacts),
	}
	p := New(append(base, opts...)...)
	if p.analyzer == nil {
		analyzer, err := analyze.NewGemini(cfg.APIKey, cfg.Model, analyze.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.analyzer = analyzer
	}
	return p, nil
}

// Run checks one presentation. Stages execute in order inside a run-scoped
// temp directory; the first failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	if p.analyzer == nil {
		return nil, errors.New("pipeline: analyzer not configured")
	}
	start := time.Now()

	workDir, err := os.MkdirTemp(p.workDir, "deckcheck-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if !p.keepArtifacts {
			os.RemoveAll(workDir)
		}
	}()

	slides, err := p.extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		p.logger.Info("presentation has no slides, skipping analysis")
		return &Result{Slides: slides, Findings: []analyze.Finding{}}, nil
	}

	pdfPath, err := p.convert(ctx, path, workDir)
	if err != nil {
		return nil, err
	}

	pages, err := p.rasterize(ctx, pdfPath, workDir)
	if err != nil {
		return nil, err
	}

	texts, err := p.recognize(ctx, pages, len(slides))
	if err != nil {
		return nil, err
	}

	deck, err := aggregate.Build(slides, texts)
	if err != nil {
		return nil, fmt.Errorf("aggregate slides: %w", err)
	}

	findings, err := p.analyzeDeck(ctx, deck)
	if err != nil {
		return nil, err
	}
	p.vetFindings(findings, len(slides))

	p.logger.Info("run complete",
		observability.Int(observability.MetricFindingCount, len(findings)),
		observability.Duration("duration", time.Since(start)))

	res := &Result{Slides: slides, Findings: findings}
	if p.keepArtifacts {
		res.WorkDir = workDir
		p.logger.Info("artifacts retained", observability.String("dir", workDir))
	}
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, path string) ([]pptx.Slide, error) {
	ctx, span := p.tracer.StartSpan(ctx, "extract")
	defer span.Finish()
	start := time.Now()

	slides, err := p.extractor.Extract(ctx, path)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("extract slides: %w", err)
	}
	for _, s := range slides {
		p.logger.Debug("slide extracted",
			observability.Int("slide", s.Index),
			observability.Int("title_chars", len(s.Title)),
			observability.Int("body_chars", len(s.Body)),
			observability.Int("notes_chars", len(s.Notes)))
	}
	p.logger.Info("slides extracted",
		observability.Int(observability.MetricSlideCount, len(slides)),
		observability.Duration(observability.MetricExtractTime, time.Since(start)))
	return slides, nil
}

func (p *Pipeline) convert(ctx context.Context, path, workDir string) (string, error) {
	ctx, span := p.tracer.StartSpan(ctx, "convert")
	defer span.Finish()
	start := time.Now()

	pdfPath, err := p.converter.Convert(ctx, path, workDir)
	if err != nil {
		span.SetError(err)
		return "", fmt.Errorf("convert presentation: %w", err)
	}
	p.logger.Info("pdf produced",
		observability.String("pdf", filepath.Base(pdfPath)),
		observability.Duration(observability.MetricConvertTime, time.Since(start)))
	return pdfPath, nil
}

func (p *Pipeline) rasterize(ctx context.Context, pdfPath, workDir string) ([]string, error) {
	ctx, span := p.tracer.StartSpan(ctx, "rasterize")
	defer span.Finish()
	start := time.Now()

	pagesDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pages dir: %w", err)
	}
	pages, err := p.rasterizer.Rasterize(ctx, pdfPath, pagesDir)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}
	p.logger.Info("pages rasterized",
		observability.Int(observability.MetricPageCount, len(pages)),
		observability.Duration(observability.MetricRasterizeTime, time.Since(start)))
	return pages, nil
}

// recognize OCRs page images and pairs each text with its slide. Pages
// beyond the slide count are dropped, slides beyond the page count get
// empty text; either mismatch is logged.
func (p *Pipeline) recognize(ctx context.Context, pages []string, slideCount int) ([]string, error) {
	ctx, span := p.tracer.StartSpan(ctx, "ocr")
	defer span.Finish()
	start := time.Now()

	if len(pages) != slideCount {
		p.logger.Warn("page count differs from slide count",
			observability.Int(observability.MetricPageCount, len(pages)),
			observability.Int(observability.MetricSlideCount, slideCount))
	}
	n := min(len(pages), slideCount)
	results, err := ocr.RecognizeFiles(ctx, p.engine, pages[:n], p.inputOptions()...)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("ocr pages: %w", err)
	}
	texts := make([]string, slideCount)
	for _, r := range results {
		if r.Slide >= 1 && r.Slide <= slideCount {
			texts[r.Slide-1] = r.Text
		}
		p.logger.Debug("page recognized",
			observability.Int("slide", r.Slide),
			observability.Int("chars", len(r.Text)),
			observability.Float64("confidence", r.Confidence))
	}
	p.logger.Info("pages recognized",
		observability.Int(observability.MetricPageCount, n),
		observability.Duration(observability.MetricOCRTime, time.Since(start)))
	return texts, nil
}

func (p *Pipeline) analyzeDeck(ctx context.Context, deck string) ([]analyze.Finding, error) {
	ctx, span := p.tracer.StartSpan(ctx, "analyze")
	defer span.Finish()
	start := time.Now()

	p.logger.Info("deck submitted",
		observability.Int(observability.MetricPromptBytes, len(deck)))
	findings, err := p.analyzer.Analyze(ctx, deck)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("analyze deck: %w", err)
	}
	p.logger.Info("analysis complete",
		observability.Int(observability.MetricFindingCount, len(findings)),
		observability.Duration(observability.MetricAnalyzeTime, time.Since(start)))
	return findings, nil
}

// vetFindings logs findings that reference slides outside the deck or use
// an undocumented kind. They stay in the report verbatim.
func (p *Pipeline) vetFindings(findings []analyze.Finding, slideCount int) {
	for i, f := range findings {
		if !analyze.KnownKind(f.Kind) {
			p.logger.Warn("finding has undocumented kind",
				observability.Int("finding", i+1),
				observability.String("kind", f.Kind))
		}
		if out := f.OutOfRange(slideCount); len(out) > 0 {
			p.logger.Warn("finding references slides outside the deck",
				observability.Int("finding", i+1),
				observability.Ints("slides", out),
				observability.Int(observability.MetricSlideCount, slideCount))
		}
	}
}

func (p *Pipeline) inputOptions() []ocr.InputOption {
	opts := []ocr.InputOption{ocr.WithDPI(p.dpi)}
	if len(p.languages) > 0 {
		opts = append(opts, ocr.WithLanguages(p.languages...))
	}
	if p.maxPixels > 0 {
		opts = append(opts, ocr.WithMaxPixels(p.maxPixels))
	}
	return opts
}
