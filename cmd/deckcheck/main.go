package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wudi/deckcheck/analyze"
	"github.com/wudi/deckcheck/config"
	"github.com/wudi/deckcheck/observability"
	"github.com/wudi/deckcheck/ocr/tesseract"
	"github.com/wudi/deckcheck/pipeline"
	"github.com/wudi/deckcheck/report"
)

type options struct {
	deckPath      string
	configPath    string
	output        string
	htmlPath      string
	apiKey        string
	model         string
	popplerDir    string
	soffice       string
	dpi           int
	languages     string
	maxPixels     int
	workDir       string
	keepArtifacts bool
	debug         bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckcheck: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "deckcheck: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: deckcheck [flags] <presentation.pptx>\n")
		flag.PrintDefaults()
	}
	output := flag.String("output", "", "JSON report path (default results.json)")
	htmlPath := flag.String("html", "", "Optional HTML report path")
	apiKey := flag.String("api-key", "", "Gemini API key (overrides GOOGLE_API_KEY)")
	model := flag.String("model", "", "Gemini model name")
	poppler := flag.String("poppler", "", "Poppler bin directory")
	soffice := flag.String("soffice", "", "Conversion binary (default libreoffice)")
	dpi := flag.Int("dpi", 0, "Rasterization DPI (default 200)")
	lang := flag.String("lang", "", "Comma-separated OCR languages (default eng)")
	maxPixels := flag.Int("max-pixels", 0, "Downscale page images above this pixel count before OCR")
	workDir := flag.String("work-dir", "", "Directory for run-scoped temp files")
	configPath := flag.String("config", "", "YAML or JSON config file")
	keep := flag.Bool("keep-artifacts", false, "Retain the intermediate PDF and page images")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing presentation path")
	}
	opts.deckPath = flag.Arg(0)
	opts.configPath = *configPath
	opts.output = *output
	opts.htmlPath = *htmlPath
	opts.apiKey = *apiKey
	opts.model = *model
	opts.popplerDir = *poppler
	opts.soffice = *soffice
	opts.dpi = *dpi
	opts.languages = *lang
	opts.maxPixels = *maxPixels
	opts.workDir = *workDir
	opts.keepArtifacts = *keep
	opts.debug = *debug
	return opts, nil
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Debug)
	if cfg.TessdataPrefix == "" {
		logger.Debug("TESSDATA_PREFIX not set, using system tessdata")
	}

	engine := tesseract.NewEngine()
	engine.TessdataPrefix = cfg.TessdataPrefix

	p, err := pipeline.NewDefault(cfg,
		pipeline.WithEngine(engine),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		if errors.Is(err, analyze.ErrMissingAPIKey) {
			return fmt.Errorf("%w (use -api-key or set GOOGLE_API_KEY)", err)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx, opts.deckPath)
	if err != nil {
		return err
	}

	if err := report.WriteJSON(cfg.OutputPath, res.Findings); err != nil {
		return err
	}
	logger.Info("report written", observability.String("path", cfg.OutputPath))
	if cfg.HTMLPath != "" {
		if err := report.WriteHTML(cfg.HTMLPath, res.Findings); err != nil {
			return err
		}
		logger.Info("html report written", observability.String("path", cfg.HTMLPath))
	}

	summarize(logger, res)
	return nil
}

// applyFlags lays explicitly set flag values over the loaded config.
func applyFlags(cfg *config.Config, opts options) {
	if opts.output != "" {
		cfg.OutputPath = opts.output
	}
	if opts.htmlPath != "" {
		cfg.HTMLPath = opts.htmlPath
	}
	if opts.apiKey != "" {
		cfg.APIKey = opts.apiKey
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.popplerDir != "" {
		cfg.PopplerDir = opts.popplerDir
	}
	if opts.soffice != "" {
		cfg.SofficeBinary = opts.soffice
	}
	if opts.dpi > 0 {
		cfg.DPI = opts.dpi
	}
	if opts.languages != "" {
		cfg.Languages = config.SplitLanguages(opts.languages)
	}
	if opts.maxPixels > 0 {
		cfg.MaxPixels = opts.maxPixels
	}
	if opts.workDir != "" {
		cfg.WorkDir = opts.workDir
	}
	if opts.keepArtifacts {
		cfg.KeepArtifacts = true
	}
	if opts.debug {
		cfg.Debug = true
	}
}

func newLogger(debug bool) observability.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return observability.NewSlog(slog.New(handler))
}

func summarize(logger observability.Logger, res *pipeline.Result) {
	logger.Info("analysis finished",
		observability.Int("slides", len(res.Slides)),
		observability.Int("findings", len(res.Findings)))
	for i, f := range res.Findings {
		logger.Info(fmt.Sprintf("finding %d", i+1),
			observability.String("kind", f.Kind),
			observability.Ints("slides", f.Slides),
			observability.Float64("confidence", f.Confidence),
			observability.String("description", f.Description))
	}
	if len(res.Findings) == 0 {
		logger.Info("no inconsistencies found")
	}
}
