// Package pipeline sequences the receipt-capture stages and owns the
// per-run state machine: Captured, Detecting, Rectifying (optional),
// Enhancing, Recognizing, Extracting, AwaitingConfirmation, and the
// terminal Committed / Abandoned states.
package pipeline

import (
	"fmt"

	"github.com/obraops/captura/internal/detector"
	"github.com/obraops/captura/internal/enhance"
	"github.com/obraops/captura/internal/extract"
	"github.com/obraops/captura/internal/ingest"
	"github.com/obraops/captura/internal/recognizer"
	"github.com/obraops/captura/internal/rectify"
)

// Config holds configuration for the capture pipeline and its components.
type Config struct {
	MaxUploadBytes int64
	Detector       detector.Config
	Recognizer     recognizer.Config
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes: ingest.MaxPayloadBytes,
		Detector:       detector.DefaultConfig(),
		Recognizer:     recognizer.DefaultConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	engine   recognizer.Engine
	observer Observer
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithLanguage sets the OCR language model for the run.
func (b *Builder) WithLanguage(lang string) *Builder {
	if lang != "" {
		b.cfg.Recognizer.Language = lang
	}
	return b
}

// WithMaxUploadBytes overrides the ingestion payload cap.
func (b *Builder) WithMaxUploadBytes(n int64) *Builder {
	if n > 0 {
		b.cfg.MaxUploadBytes = n
	}
	return b
}

// WithDetectorThresholds sets the Canny hysteresis thresholds.
func (b *Builder) WithDetectorThresholds(low, high float64) *Builder {
	if low > 0 {
		b.cfg.Detector.LowThreshold = low
	}
	if high > 0 {
		b.cfg.Detector.HighThreshold = high
	}
	return b
}

// WithMinAreaFraction sets the minimum contour area fraction for a
// boundary candidate.
func (b *Builder) WithMinAreaFraction(f float64) *Builder {
	if f > 0 && f < 1 {
		b.cfg.Detector.MinAreaFraction = f
	}
	return b
}

// WithEngine substitutes the OCR engine, bypassing Tesseract construction.
// Used by tests and by callers that bring their own engine.
func (b *Builder) WithEngine(engine recognizer.Engine) *Builder {
	b.engine = engine
	return b
}

// WithObserver attaches a progress observer to every session created from
// the built pipeline.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build initializes the pipeline components. OCR engine availability is
// checked here, once, rather than per call.
func (b *Builder) Build() (*Pipeline, error) {
	var rec *recognizer.Recognizer
	if b.engine != nil {
		rec = recognizer.NewRecognizerWithEngine(b.engine)
	} else {
		var err error
		rec, err = recognizer.NewRecognizer(b.cfg.Recognizer)
		if err != nil {
			return nil, fmt.Errorf("init recognizer: %w", err)
		}
	}

	obs := b.observer
	if obs == nil {
		obs = NoOpObserver{}
	}

	return &Pipeline{
		cfg:        b.cfg,
		ingestor:   ingest.NewIngestor(b.cfg.MaxUploadBytes),
		detector:   detector.NewDetector(b.cfg.Detector),
		rectifier:  rectify.NewRectifier(),
		enhancer:   enhance.NewEnhancer(),
		recognizer: rec,
		extractor:  extract.NewExtractor(),
		observer:   obs,
	}, nil
}

// Pipeline wires the capture stages together. It is safe to share across
// sessions; each session owns its own run state and image buffers.
type Pipeline struct {
	cfg        Config
	ingestor   *ingest.Ingestor
	detector   *detector.Detector
	rectifier  *rectify.Rectifier
	enhancer   *enhance.Enhancer
	recognizer *recognizer.Recognizer
	extractor  *extract.Extractor
	observer   Observer
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Close releases component resources (the OCR engine).
func (p *Pipeline) Close() error { return p.recognizer.Close() }
