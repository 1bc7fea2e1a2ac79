package pipeline_test

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obraops/captura/internal/ingest"
	"github.com/obraops/captura/internal/pipeline"
	"github.com/obraops/captura/internal/recognizer"
	"github.com/obraops/captura/internal/testutil"
	"github.com/obraops/captura/internal/utils"
)

// recordingObserver captures the event sequence of a run.
type recordingObserver struct {
	started   []pipeline.Stage
	completed []pipeline.Stage
	failed    []pipeline.Stage
}

func (r *recordingObserver) OnStageStart(s pipeline.Stage)    { r.started = append(r.started, s) }
func (r *recordingObserver) OnStageComplete(s pipeline.Stage) { r.completed = append(r.completed, s) }
func (r *recordingObserver) OnError(s pipeline.Stage, _ error) {
	r.failed = append(r.failed, s)
}

func buildPipeline(t *testing.T, engine recognizer.Engine) *pipeline.Pipeline {
	t.Helper()
	pl, err := pipeline.NewBuilder().WithEngine(engine).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pl.Close() })
	return pl
}

func receiptPayload(t *testing.T) []byte {
	t.Helper()
	corners := [4]utils.Point{{X: 30, Y: 40}, {X: 170, Y: 40}, {X: 170, Y: 160}, {X: 30, Y: 160}}
	return testutil.EncodePNG(t, testutil.ReceiptScene(200, 200, corners))
}

func flatPayload(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.SolidImage(200, 200, color.RGBA{120, 120, 120, 255}))
}

func TestSessionCleanCapture(t *testing.T) {
	engine := &testutil.StubEngine{
		Text:       "CAFETERIA EL SOL\nSUBTOTAL $900.00\nTOTAL: $1.234,56",
		Confidence: 91,
	}
	obs := &recordingObserver{}
	pl := buildPipeline(t, engine)

	session := pipeline.NewSessionWithObserver(pl, obs)
	res, err := session.Process(context.Background(), receiptPayload(t), "image/png")
	require.NoError(t, err)

	assert.Equal(t, pipeline.StageAwaitingConfirmation, session.State())
	assert.Equal(t, pipeline.StageAwaitingConfirmation, res.StageReached)

	require.NotNil(t, res.Boundary)
	assert.True(t, res.Boundary.Detected)
	assert.True(t, res.WasRectified)
	require.NotNil(t, res.Rectified)

	require.NotNil(t, res.OCR)
	assert.Equal(t, 91.0, res.OCR.Confidence)

	require.NotNil(t, res.Amount)
	require.NotNil(t, res.Amount.Value)
	assert.InDelta(t, 1234.56, *res.Amount.Value, 1e-9)
	assert.Equal(t, 100.0, res.Amount.Confidence)

	// Every stage ran, in order, with rectification included.
	assert.Equal(t, []pipeline.Stage{
		pipeline.StageDetecting,
		pipeline.StageRectifying,
		pipeline.StageEnhancing,
		pipeline.StageRecognizing,
		pipeline.StageExtracting,
	}, obs.started)
	assert.Empty(t, obs.failed)
}

func TestSessionFlatCaptureSkipsRectification(t *testing.T) {
	engine := &testutil.StubEngine{Text: "Total 500.00", Confidence: 60}
	obs := &recordingObserver{}
	pl := buildPipeline(t, engine)

	session := pipeline.NewSessionWithObserver(pl, obs)
	res, err := session.Process(context.Background(), flatPayload(t), "image/png")
	require.NoError(t, err)

	assert.Equal(t, pipeline.StageAwaitingConfirmation, session.State())
	require.NotNil(t, res.Boundary)
	assert.False(t, res.Boundary.Detected)
	assert.False(t, res.WasRectified)
	assert.Nil(t, res.Rectified)
	assert.NotContains(t, obs.started, pipeline.StageRectifying)

	require.NotNil(t, res.Amount.Value)
	assert.InDelta(t, 500.0, *res.Amount.Value, 1e-9)
}

func TestSessionIngestRejectionKeepsCapturedState(t *testing.T) {
	pl := buildPipeline(t, &testutil.StubEngine{})
	session := pipeline.NewSession(pl)

	_, err := session.Process(context.Background(), receiptPayload(t), "application/pdf")
	var invalid *ingest.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, pipeline.StageCaptured, session.State())

	// The same session accepts a corrected capture afterwards.
	_, err = session.Process(context.Background(), receiptPayload(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAwaitingConfirmation, session.State())
}

func TestSessionRecognitionFailureAbandons(t *testing.T) {
	engine := &testutil.StubEngine{Err: errors.New("engine exploded")}
	obs := &recordingObserver{}
	pl := buildPipeline(t, engine)

	session := pipeline.NewSessionWithObserver(pl, obs)
	_, err := session.Process(context.Background(), receiptPayload(t), "image/png")

	var recErr *recognizer.RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, pipeline.StageAbandoned, session.State())
	assert.Contains(t, obs.failed, pipeline.StageRecognizing)

	// Terminal sessions refuse further captures.
	_, err = session.Process(context.Background(), receiptPayload(t), "image/png")
	assert.ErrorIs(t, err, pipeline.ErrSessionTerminal)
}

func TestSessionConfirm(t *testing.T) {
	engine := &testutil.StubEngine{Text: "TOTAL: $250.00", Confidence: 80}
	pl := buildPipeline(t, engine)
	session := pipeline.NewSession(pl)

	_, err := session.Process(context.Background(), receiptPayload(t), "image/png")
	require.NoError(t, err)

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	// The user corrected the amount; their value is authoritative.
	expense, err := session.Confirm(260.00, "almuerzo equipo", date)
	require.NoError(t, err)

	assert.Equal(t, 260.00, expense.Amount)
	assert.Equal(t, "almuerzo equipo", expense.Description)
	assert.Equal(t, date, expense.Date)
	require.NotNil(t, expense.Audit)
	assert.Equal(t, "TOTAL: $250.00", expense.Audit.RawText)
	assert.Equal(t, 80.0, expense.Audit.OCRConfidence)
	assert.True(t, expense.Audit.Rectified)
	assert.NotEmpty(t, expense.OriginalPNG)
	assert.NotEmpty(t, expense.RectifiedPNG)

	assert.Equal(t, pipeline.StageCommitted, session.State())

	_, err = session.Confirm(1, "again", date)
	assert.ErrorIs(t, err, pipeline.ErrNotAwaitingConfirmation)
}

func TestSessionRestart(t *testing.T) {
	engine := &testutil.StubEngine{Text: "Total 10.00", Confidence: 50}
	pl := buildPipeline(t, engine)
	session := pipeline.NewSession(pl)

	// Restart is only legal while awaiting confirmation.
	assert.ErrorIs(t, session.Restart(), pipeline.ErrNotAwaitingConfirmation)

	_, err := session.Process(context.Background(), receiptPayload(t), "image/png")
	require.NoError(t, err)

	require.NoError(t, session.Restart())
	assert.Equal(t, pipeline.StageCaptured, session.State())
	assert.Nil(t, session.Result())

	// A fresh capture runs normally after the restart.
	res, err := session.Process(context.Background(), flatPayload(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAwaitingConfirmation, res.StageReached)
}

func TestSessionCancellation(t *testing.T) {
	engine := &testutil.StubEngine{Text: "Total 10.00"}
	pl := buildPipeline(t, engine)
	session := pipeline.NewSession(pl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.Process(ctx, receiptPayload(t), "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, pipeline.StageAwaitingConfirmation, session.State())
}

func TestBuilderConfig(t *testing.T) {
	b := pipeline.NewBuilder().
		WithLanguage("eng").
		WithMaxUploadBytes(1024).
		WithDetectorThresholds(40, 120).
		WithMinAreaFraction(0.2)

	cfg := b.Config()
	assert.Equal(t, "eng", cfg.Recognizer.Language)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, 40.0, cfg.Detector.LowThreshold)
	assert.Equal(t, 120.0, cfg.Detector.HighThreshold)
	assert.Equal(t, 0.2, cfg.Detector.MinAreaFraction)

	// Invalid overrides are ignored.
	b.WithLanguage("").WithMaxUploadBytes(-1).WithMinAreaFraction(3)
	cfg = b.Config()
	assert.Equal(t, "eng", cfg.Recognizer.Language)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, 0.2, cfg.Detector.MinAreaFraction)
}
