package main

import (
	"reflect"
	"testing"

	"github.com/wudi/deckcheck/config"
)

func TestApplyFlagsPrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "from-env"
	cfg.Model = "env-model"
	applyFlags(&cfg, options{
		apiKey:        "from-flag",
		dpi:           300,
		languages:     "eng,jpn",
		output:        "custom.json",
		keepArtifacts: true,
	})
	if cfg.APIKey != "from-flag" {
		t.Errorf("api key = %q, want the flag to win", cfg.APIKey)
	}
	if cfg.Model != "env-model" {
		t.Errorf("model = %q, want unset flag to keep prior value", cfg.Model)
	}
	if cfg.DPI != 300 {
		t.Errorf("dpi = %d, want 300", cfg.DPI)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"eng", "jpn"}) {
		t.Errorf("languages = %v", cfg.Languages)
	}
	if cfg.OutputPath != "custom.json" {
		t.Errorf("output = %q", cfg.OutputPath)
	}
	if !cfg.KeepArtifacts {
		t.Error("keep-artifacts flag was dropped")
	}
}

func TestApplyFlagsZeroValuesLeaveConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DPI = 240
	cfg.HTMLPath = "report.html"
	applyFlags(&cfg, options{})
	if cfg.DPI != 240 {
		t.Errorf("dpi = %d, want 240 untouched", cfg.DPI)
	}
	if cfg.HTMLPath != "report.html" {
		t.Errorf("html path = %q, want untouched", cfg.HTMLPath)
	}
	if cfg.OutputPath != config.DefaultOutputPath {
		t.Errorf("output = %q, want default", cfg.OutputPath)
	}
}
