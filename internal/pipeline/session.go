package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/obraops/captura/internal/rectify"
	"github.com/obraops/captura/internal/utils"
)

// ErrNotAwaitingConfirmation is returned when Confirm or Restart is called
// outside the AwaitingConfirmation state.
var ErrNotAwaitingConfirmation = errors.New("session is not awaiting confirmation")

// ErrSessionTerminal is returned when a terminal session is asked to
// process another capture.
var ErrSessionTerminal = errors.New("session reached a terminal state; start a new session")

// Session is one capture run: a single image processed through all stages
// sequentially, ending in user confirmation or abandonment. Sessions are
// not safe for concurrent use; a capture session belongs to one user flow.
type Session struct {
	p      *Pipeline
	obs    Observer
	state  Stage
	result *Result
	logger *slog.Logger
}

// NewSession starts a capture session in the Captured state, reporting
// progress to the pipeline's observer.
func NewSession(p *Pipeline) *Session {
	return NewSessionWithObserver(p, p.observer)
}

// NewSessionWithObserver starts a capture session with its own progress
// observer, for callers that track runs individually.
func NewSessionWithObserver(p *Pipeline, obs Observer) *Session {
	if obs == nil {
		obs = NoOpObserver{}
	}
	return &Session{
		p:      p,
		obs:    obs,
		state:  StageCaptured,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// State returns the session's current stage.
func (s *Session) State() Stage { return s.state }

// Result returns the run record, or nil before the first Process call.
func (s *Session) Result() *Result { return s.result }

// Process runs a validated capture through detect, rectify, enhance,
// recognize, and extract, leaving the session at AwaitingConfirmation.
//
// Degraded outcomes (no boundary, degenerate geometry, empty text, no
// plausible amount) never abort the run; they lower confidence and fall
// through to human review. The only aborting stage failure is a
// recognition engine error, which moves the session to Abandoned.
// Ingestion rejections leave the session in Captured so the user can pick
// a different image.
func (s *Session) Process(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if s.state.Terminal() {
		return nil, ErrSessionTerminal
	}

	raster, err := s.p.ingestor.Ingest(data, mimeType)
	if err != nil {
		return nil, err
	}

	res := &Result{Original: raster.Image, StageReached: StageCaptured}

	working, err := s.detectAndRectify(ctx, res)
	if err != nil {
		return nil, err
	}

	if err := s.enhanceRecognizeExtract(ctx, res, working); err != nil {
		return nil, err
	}

	res.StageReached = StageAwaitingConfirmation
	s.state = StageAwaitingConfirmation
	s.result = res
	return res, nil
}

// detectAndRectify runs boundary detection and, when a boundary exists,
// perspective rectification. It returns the raster the remaining stages
// should operate on: the rectified canvas when rectification succeeded,
// the original otherwise.
func (s *Session) detectAndRectify(ctx context.Context, res *Result) (image.Image, error) {
	if err := s.advance(ctx, res, StageDetecting); err != nil {
		return nil, err
	}
	boundary := s.p.detector.Detect(res.Original)
	res.Boundary = &boundary
	s.obs.OnStageComplete(StageDetecting)

	if !boundary.Detected {
		// Valid low-information result; operate on the original image.
		return res.Original, nil
	}

	if err := s.advance(ctx, res, StageRectifying); err != nil {
		return nil, err
	}
	rectified, err := s.p.rectifier.Rectify(res.Original, [4]utils.Point(boundary.Corners))
	if err != nil {
		var degenerate *rectify.DegenerateGeometryError
		if errors.As(err, &degenerate) {
			// Recovered locally: skip rectification, keep the original.
			s.obs.OnError(StageRectifying, err)
			s.logger.Debug("rectification skipped", "reason", err)
			return res.Original, nil
		}
		return nil, fmt.Errorf("rectify: %w", err)
	}
	res.Rectified = rectified
	res.WasRectified = true
	s.obs.OnStageComplete(StageRectifying)
	return rectified, nil
}

// enhanceRecognizeExtract runs the remaining stages over the working
// raster.
func (s *Session) enhanceRecognizeExtract(ctx context.Context, res *Result, working image.Image) error {
	if err := s.advance(ctx, res, StageEnhancing); err != nil {
		return err
	}
	enhanced, err := s.p.enhancer.Enhance(working)
	if err != nil {
		// Enhancement is total; a failure here means malformed input.
		s.abandon(res, StageEnhancing, err)
		return fmt.Errorf("enhance: %w", err)
	}
	s.obs.OnStageComplete(StageEnhancing)

	if err := s.advance(ctx, res, StageRecognizing); err != nil {
		return err
	}
	ocr, err := s.p.recognizer.Recognize(ctx, enhanced)
	if err != nil {
		// The one stage failure that aborts the run.
		s.abandon(res, StageRecognizing, err)
		return err
	}
	res.OCR = &ocr
	s.obs.OnStageComplete(StageRecognizing)

	if err := s.advance(ctx, res, StageExtracting); err != nil {
		return err
	}
	amount := s.p.extractor.Extract(ocr.Text)
	res.Amount = &amount
	s.obs.OnStageComplete(StageExtracting)
	return nil
}

// advance checks cancellation, records the stage, and notifies observers.
func (s *Session) advance(ctx context.Context, res *Result, stage Stage) error {
	if err := ctx.Err(); err != nil {
		// Discarding mid-pipeline is safe: nothing has been published.
		return fmt.Errorf("pipeline canceled before %s: %w", stage, err)
	}
	s.state = stage
	res.StageReached = stage
	s.obs.OnStageStart(stage)
	return nil
}

func (s *Session) abandon(res *Result, stage Stage, err error) {
	s.state = StageAbandoned
	res.StageReached = StageAbandoned
	s.result = res
	s.obs.OnError(stage, err)
}

// Confirm commits the user-reviewed values and moves the session to
// Committed. The confirmed amount, description, and date are authoritative
// regardless of what the pipeline inferred; the run's OCR metadata and
// image payloads ride along for the external collaborators.
func (s *Session) Confirm(amount float64, description string, date time.Time) (*CommittedExpense, error) {
	if s.state != StageAwaitingConfirmation {
		return nil, ErrNotAwaitingConfirmation
	}
	res := s.result
	expense := &CommittedExpense{
		Amount:       amount,
		Description:  description,
		Date:         date,
		Audit:        res.audit(),
		OriginalPNG:  encodePNG(res.Original),
		RectifiedPNG: encodePNG(res.Rectified),
	}
	s.state = StageCommitted
	res.StageReached = StageCommitted
	return expense, nil
}

// Restart discards the current attempt and returns the session to
// Captured for a fresh photo. Intermediate artifacts of the abandoned
// attempt are dropped, never merged with the next run.
func (s *Session) Restart() error {
	if s.state != StageAwaitingConfirmation {
		return ErrNotAwaitingConfirmation
	}
	s.result = nil
	s.state = StageCaptured
	return nil
}
