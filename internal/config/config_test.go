package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
	if cfg.Autosave.IntervalMS != 5000 {
		t.Errorf("autosave interval = %d, want 5000", cfg.Autosave.IntervalMS)
	}
	if cfg.Export.DefaultFormat != "coco" {
		t.Errorf("default export format = %q, want coco", cfg.Export.DefaultFormat)
	}
	// Must match the style new projects start with.
	if cfg.Annotation.DefaultStyle != "Default" {
		t.Errorf("default style = %q, want Default", cfg.Annotation.DefaultStyle)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"autosave interval too small", func(c *Config) { c.Autosave.IntervalMS = 100 }},
		{"empty default style", func(c *Config) { c.Annotation.DefaultStyle = "" }},
		{"unknown export format", func(c *Config) { c.Export.DefaultFormat = "tfrecord" }},
		{"unknown assist backend", func(c *Config) { c.Assist.Backend = "openai" }},
		{"malformed server url", func(c *Config) { c.Assist.ServerURL = "not a url" }},
		{"min score above one", func(c *Config) { c.Assist.MinScore = 1.5 }},
		{"interpolation interval too small", func(c *Config) { c.Interpolate.Interval = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := Default()
	cfg.Autosave.IntervalMS = 12000
	cfg.Assist.Model = "qwen2-vl"
	cfg.Interpolate.Enabled = true

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Autosave.IntervalMS != 12000 {
		t.Errorf("interval = %d, want 12000", loaded.Autosave.IntervalMS)
	}
	if loaded.Assist.Model != "qwen2-vl" {
		t.Errorf("model = %q, want qwen2-vl", loaded.Assist.Model)
	}
	if !loaded.Interpolate.Enabled {
		t.Error("interpolation enabled flag lost")
	}
}

func TestSaveRefusesInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Export.DefaultFormat = "bogus"
	if err := cfg.SaveToFile(path); err == nil {
		t.Error("expected error saving invalid config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid config was written anyway")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"autosave":{"interval_ms":10}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(invalid); err == nil {
		t.Error("expected validation error for out-of-range values")
	}
}
