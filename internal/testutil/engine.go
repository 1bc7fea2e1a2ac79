package testutil

import (
	"context"
	"image"

	"github.com/obraops/captura/internal/recognizer"
)

// StubEngine is a canned OCR engine for pipeline-level tests. It returns
// the configured text and confidence, or Err when set.
type StubEngine struct {
	Text       string
	Confidence float64
	Err        error

	Calls  int
	Closed bool
}

// Name identifies the engine.
func (s *StubEngine) Name() string { return "stub" }

// Recognize returns the canned result.
func (s *StubEngine) Recognize(_ context.Context, _ image.Image) (recognizer.Result, error) {
	s.Calls++
	if s.Err != nil {
		return recognizer.Result{}, s.Err
	}
	return recognizer.Result{Text: s.Text, Confidence: s.Confidence}, nil
}

// Close marks the engine closed.
func (s *StubEngine) Close() error {
	s.Closed = true
	return nil
}
