// Package config resolves tool settings from the environment and an
// optional config file. Flag handling stays in the command; callers layer
// flag values on top of the loaded Config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputPath = "results.json"
	DefaultModel      = "gemini-1.5-flash-latest"
	DefaultDPI        = 200
	DefaultSoffice    = "libreoffice"
	DefaultLanguage   = "eng"
)

// Config holds everything a run needs.
type Config struct {
	APIKey         string
	Model          string
	OutputPath     string
	HTMLPath       string
	PopplerDir     string
	SofficeBinary  string
	DPI            int
	Languages      []string
	MaxPixels      int
	TessdataPrefix string
	WorkDir        string
	Debug          bool
	KeepArtifacts  bool
}

type fileConfig struct {
	APIKey         string   `json:"api_key" yaml:"api_key"`
	Model          string   `json:"model" yaml:"model"`
	OutputPath     string   `json:"output_path" yaml:"output_path"`
	HTMLPath       string   `json:"html_path" yaml:"html_path"`
	PopplerDir     string   `json:"poppler_dir" yaml:"poppler_dir"`
	SofficeBinary  string   `json:"soffice_binary" yaml:"soffice_binary"`
	DPI            *int     `json:"dpi" yaml:"dpi"`
	Languages      []string `json:"languages" yaml:"languages"`
	MaxPixels      *int     `json:"max_pixels" yaml:"max_pixels"`
	TessdataPrefix string   `json:"tessdata_prefix" yaml:"tessdata_prefix"`
	WorkDir        string   `json:"work_dir" yaml:"work_dir"`
	Debug          *bool    `json:"debug" yaml:"debug"`
	KeepArtifacts  *bool    `json:"keep_artifacts" yaml:"keep_artifacts"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Model:         DefaultModel,
		OutputPath:    DefaultOutputPath,
		SofficeBinary: DefaultSoffice,
		DPI:           DefaultDPI,
		Languages:     []string{DefaultLanguage},
	}
}

// Load resolves configuration with precedence environment > file >
// defaults. An empty path means no config file; a non-empty path must
// load cleanly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := loadFileConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		cfg = applyFileConfig(cfg, fileCfg)
	}

	cfg.APIKey = firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), cfg.APIKey)
	cfg.Model = firstNonEmpty(os.Getenv("DECKCHECK_MODEL"), cfg.Model)
	cfg.OutputPath = firstNonEmpty(os.Getenv("DECKCHECK_OUTPUT"), cfg.OutputPath)
	cfg.HTMLPath = firstNonEmpty(os.Getenv("DECKCHECK_HTML"), cfg.HTMLPath)
	cfg.PopplerDir = firstNonEmpty(os.Getenv("DECKCHECK_POPPLER_DIR"), cfg.PopplerDir)
	cfg.SofficeBinary = firstNonEmpty(os.Getenv("DECKCHECK_SOFFICE"), cfg.SofficeBinary)
	cfg.TessdataPrefix = firstNonEmpty(os.Getenv("TESSDATA_PREFIX"), cfg.TessdataPrefix)
	cfg.WorkDir = firstNonEmpty(os.Getenv("DECKCHECK_WORK_DIR"), cfg.WorkDir)

	if v := strings.TrimSpace(os.Getenv("DECKCHECK_LANG")); v != "" {
		cfg.Languages = SplitLanguages(v)
	}
	if v, ok, err := parseIntEnv("DECKCHECK_DPI"); err != nil {
		return cfg, fmt.Errorf("invalid DECKCHECK_DPI: %w", err)
	} else if ok {
		cfg.DPI = v
	}
	if v, ok, err := parseIntEnv("DECKCHECK_MAX_PIXELS"); err != nil {
		return cfg, fmt.Errorf("invalid DECKCHECK_MAX_PIXELS: %w", err)
	} else if ok {
		cfg.MaxPixels = v
	}
	if v := strings.TrimSpace(os.Getenv("DECKCHECK_DEBUG")); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv("DECKCHECK_KEEP_ARTIFACTS")); v != "" {
		cfg.KeepArtifacts = parseBool(v)
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with. The API key is
// checked separately so the caller can raise an auth-class failure.
func (c Config) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive (got %d)", c.DPI)
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("output path is required")
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("max pixels must not be negative (got %d)", c.MaxPixels)
	}
	if len(c.Languages) == 0 {
		return errors.New("at least one OCR language is required")
	}
	return nil
}

// SplitLanguages parses a comma-separated language list, dropping blanks.
func SplitLanguages(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	return cfg, err
}

func applyFileConfig(base Config, file fileConfig) Config {
	base.APIKey = firstNonEmpty(file.APIKey, base.APIKey)
	base.Model = firstNonEmpty(file.Model, base.Model)
	base.OutputPath = firstNonEmpty(file.OutputPath, base.OutputPath)
	base.HTMLPath = firstNonEmpty(file.HTMLPath, base.HTMLPath)
	base.PopplerDir = firstNonEmpty(file.PopplerDir, base.PopplerDir)
	base.SofficeBinary = firstNonEmpty(file.SofficeBinary, base.SofficeBinary)
	base.TessdataPrefix = firstNonEmpty(file.TessdataPrefix, base.TessdataPrefix)
	base.WorkDir = firstNonEmpty(file.WorkDir, base.WorkDir)
	if file.DPI != nil && *file.DPI > 0 {
		base.DPI = *file.DPI
	}
	if len(file.Languages) > 0 {
		base.Languages = file.Languages
	}
	if file.MaxPixels != nil && *file.MaxPixels >= 0 {
		base.MaxPixels = *file.MaxPixels
	}
	if file.Debug != nil {
		base.Debug = *file.Debug
	}
	if file.KeepArtifacts != nil {
		base.KeepArtifacts = *file.KeepArtifacts
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}
