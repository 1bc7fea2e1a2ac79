package config

import (
	"fmt"

	"github.com/obraops/captura/internal/detector"
	"github.com/obraops/captura/internal/ingest"
	"github.com/obraops/captura/internal/recognizer"
)

// Config represents the complete configuration for the captura service.
// It covers both commands (scan, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains capture pipeline settings.
type PipelineConfig struct {
	// Maximum accepted upload size in bytes.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`

	// Boundary detection settings
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Text recognition settings
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
}

// DetectorConfig contains receipt boundary detection settings.
type DetectorConfig struct {
	MinAreaFraction       float64 `mapstructure:"min_area_fraction" yaml:"min_area_fraction" json:"min_area_fraction"`
	LowThreshold          float64 `mapstructure:"low_threshold" yaml:"low_threshold" json:"low_threshold"`
	HighThreshold         float64 `mapstructure:"high_threshold" yaml:"high_threshold" json:"high_threshold"`
	ApproxEpsilonFraction float64 `mapstructure:"approx_epsilon_fraction" yaml:"approx_epsilon_fraction" json:"approx_epsilon_fraction"`
}

// RecognizerConfig contains OCR engine settings.
type RecognizerConfig struct {
	Language  string `mapstructure:"language" yaml:"language" json:"language"`
	Whitelist string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration populated with the component
// defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			MaxUploadBytes: ingest.MaxPayloadBytes,
			Detector: DetectorConfig{
				MinAreaFraction:       detector.DefaultConfig().MinAreaFraction,
				LowThreshold:          detector.DefaultConfig().LowThreshold,
				HighThreshold:         detector.DefaultConfig().HighThreshold,
				ApproxEpsilonFraction: detector.DefaultConfig().ApproxEpsilonFraction,
			},
			Recognizer: RecognizerConfig{
				Language:  recognizer.DefaultLanguage,
				Whitelist: recognizer.DefaultWhitelist,
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c *Config) Validate() error {
	if c.Pipeline.MaxUploadBytes <= 0 {
		return fmt.Errorf("pipeline.max_upload_bytes must be positive, got %d", c.Pipeline.MaxUploadBytes)
	}
	d := c.Pipeline.Detector
	if d.MinAreaFraction <= 0 || d.MinAreaFraction >= 1 {
		return fmt.Errorf("pipeline.detector.min_area_fraction must be in (0, 1), got %g", d.MinAreaFraction)
	}
	if d.LowThreshold <= 0 || d.HighThreshold <= 0 {
		return fmt.Errorf("pipeline.detector thresholds must be positive, got low=%g high=%g", d.LowThreshold, d.HighThreshold)
	}
	if d.LowThreshold >= d.HighThreshold {
		return fmt.Errorf("pipeline.detector.low_threshold (%g) must be below high_threshold (%g)", d.LowThreshold, d.HighThreshold)
	}
	if d.ApproxEpsilonFraction <= 0 || d.ApproxEpsilonFraction >= 1 {
		return fmt.Errorf("pipeline.detector.approx_epsilon_fraction must be in (0, 1), got %g", d.ApproxEpsilonFraction)
	}
	if c.Pipeline.Recognizer.Language == "" {
		return fmt.Errorf("pipeline.recognizer.language must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server.timeout_sec must be positive, got %d", c.Server.TimeoutSec)
	}
	return nil
}

// DetectorComponentConfig converts the detector section into the
// component's own config type.
func (c *Config) DetectorComponentConfig() detector.Config {
	return detector.Config{
		MinAreaFraction:       c.Pipeline.Detector.MinAreaFraction,
		LowThreshold:          c.Pipeline.Detector.LowThreshold,
		HighThreshold:         c.Pipeline.Detector.HighThreshold,
		ApproxEpsilonFraction: c.Pipeline.Detector.ApproxEpsilonFraction,
	}
}

// RecognizerComponentConfig converts the recognizer section into the
// component's own config type.
func (c *Config) RecognizerComponentConfig() recognizer.Config {
	return recognizer.Config{
		Language:  c.Pipeline.Recognizer.Language,
		Whitelist: c.Pipeline.Recognizer.Whitelist,
	}
}
