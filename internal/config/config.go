package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// ConfigDirName is the per-user settings directory under the OS config root.
const ConfigDirName = "VideoAnnotationTool"

// Config holds the application configuration
type Config struct {
	Autosave    AutosaveConfig    `json:"autosave"`
	Annotation  AnnotationConfig  `json:"annotation"`
	Export      ExportConfig      `json:"export"`
	Assist      AssistConfig      `json:"assist"`
	Interpolate InterpolateConfig `json:"interpolation"`
}

// AutosaveConfig holds configuration for background project saving
type AutosaveConfig struct {
	Enabled    bool `json:"enabled"`
	IntervalMS int  `json:"interval_ms" validate:"gte=500"`
}

// AnnotationConfig holds configuration for annotation behavior
type AnnotationConfig struct {
	DefaultStyle          string `json:"default_style" validate:"required"`
	UsePreviousAttributes bool   `json:"use_previous_attributes"`
	DefaultClass          string `json:"default_class"`
}

// ExportConfig holds configuration for annotation export
type ExportConfig struct {
	DefaultFormat string `json:"default_format" validate:"oneof=coco yolo pascal_voc raya"`
}

// AssistConfig holds configuration for model-assisted annotation
type AssistConfig struct {
	Backend   string  `json:"backend" validate:"oneof=ollama llamacpp"`
	Model     string  `json:"model"`
	ServerURL string  `json:"server_url" validate:"omitempty,url"`
	MinScore  float64 `json:"min_score" validate:"gte=0,lte=1"`
}

// InterpolateConfig holds configuration for keyframe interpolation
type InterpolateConfig struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval" validate:"gte=2"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Autosave: AutosaveConfig{
			Enabled:    true,
			IntervalMS: 5000,
		},
		Annotation: AnnotationConfig{
			DefaultStyle:          "Default",
			UsePreviousAttributes: true,
		},
		Export: ExportConfig{
			DefaultFormat: "coco",
		},
		Assist: AssistConfig{
			Backend:   "ollama",
			Model:     "llava",
			ServerURL: "http://localhost:11434",
			MinScore:  0.25,
		},
		Interpolate: InterpolateConfig{
			Enabled:  false,
			Interval: 5,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Load reads the per-user config file, falling back to defaults when it does
// not exist yet.
func Load() (*Config, error) {
	path := GetConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(base, ConfigDirName, "config.json")
}
