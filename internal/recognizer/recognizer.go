// Package recognizer runs optical character recognition over an enhanced
// raster and reports the recognized text with an aggregate confidence.
//
// The OCR backend is Tesseract via gosseract, constructed explicitly at
// startup: an unavailable engine is a constructor error, never a per-call
// runtime check.
package recognizer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
)

// DefaultLanguage is the Tesseract language model used when none is
// configured. Receipts in the field are predominantly Spanish.
const DefaultLanguage = "spa"

// DefaultWhitelist restricts recognition to digits, Latin letters
// (including accented Spanish characters), and currency punctuation.
const DefaultWhitelist = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÁÉÍÓÚÜÑáéíóúüñ" +
	".,-$() "

// RecognitionError reports an OCR engine invocation failure. It is the
// only stage failure that aborts a pipeline run; a valid empty result is
// not an error.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string { return fmt.Sprintf("text recognition failed: %v", e.Err) }

func (e *RecognitionError) Unwrap() error { return e.Err }

// Result is the outcome of one recognition pass. Text may be empty when
// recognition yielded nothing; Confidence is 0 in that case.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine is the OCR provider contract: one image in, one result out.
// Implementations own their engine lifecycle and must be closed.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Result, error)
	Close() error
}

// Config holds recognition settings.
type Config struct {
	// Language is the single Tesseract language model for the run.
	Language string
	// Whitelist restricts the recognized character set.
	Whitelist string
}

// DefaultConfig returns the default recognition configuration.
func DefaultConfig() Config {
	return Config{Language: DefaultLanguage, Whitelist: DefaultWhitelist}
}

// Recognizer wraps an Engine and normalizes its failure mode to
// RecognitionError.
type Recognizer struct {
	engine Engine
	logger *slog.Logger
}

// NewRecognizer constructs a Recognizer backed by the default Tesseract
// engine. Engine initialization failure surfaces here, once.
func NewRecognizer(cfg Config) (*Recognizer, error) {
	eng, err := NewTesseractEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("init OCR engine: %w", err)
	}
	return NewRecognizerWithEngine(eng), nil
}

// NewRecognizerWithEngine constructs a Recognizer over a caller-supplied
// engine.
func NewRecognizerWithEngine(engine Engine) *Recognizer {
	return &Recognizer{
		engine: engine,
		logger: slog.Default().With("component", "recognizer"),
	}
}

// Recognize runs OCR over the image. Engine errors come back as
// *RecognitionError; an empty Result with confidence 0 is a valid outcome,
// not a failure.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &RecognitionError{Err: err}
	}
	res, err := r.engine.Recognize(ctx, img)
	if err != nil {
		return Result{}, &RecognitionError{Err: err}
	}
	r.logger.Debug("recognition complete",
		"engine", r.engine.Name(), "chars", len(res.Text), "confidence", res.Confidence)
	return res, nil
}

// Close releases the underlying engine.
func (r *Recognizer) Close() error { return r.engine.Close() }
