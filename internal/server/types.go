// Package server exposes the capture pipeline over HTTP: a multipart scan
// endpoint, a WebSocket variant with stage-granular progress, health, and
// Prometheus metrics.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obraops/captura/internal/config"
	"github.com/obraops/captura/internal/pipeline"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline   *pipeline.Pipeline
	maxUpload  int64
	timeoutSec int
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ScanResult is the wire form of one pipeline run. The server never
// commits expenses; it returns the run's findings for the client to
// review and confirm through its own flow.
type ScanResult struct {
	Stage            pipeline.Stage `json:"stage"`
	Detected         bool           `json:"detected"`
	BoundaryQuality  float64        `json:"boundary_quality"`
	Rectified        bool           `json:"rectified"`
	Text             string         `json:"text"`
	OCRConfidence    float64        `json:"ocr_confidence"`
	Amount           *float64       `json:"amount"`
	AmountConfidence float64        `json:"amount_confidence"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// ScanResponse wraps a scan result or an error.
type ScanResponse struct {
	Success bool        `json:"success"`
	Result  *ScanResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewServer builds the pipeline from config and wraps it in a server.
func NewServer(cfg *config.Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().
		WithMaxUploadBytes(cfg.Pipeline.MaxUploadBytes).
		WithLanguage(cfg.Pipeline.Recognizer.Language).
		WithDetectorThresholds(cfg.Pipeline.Detector.LowThreshold, cfg.Pipeline.Detector.HighThreshold).
		WithMinAreaFraction(cfg.Pipeline.Detector.MinAreaFraction).
		Build()
	if err != nil {
		return nil, err
	}

	return &Server{
		pipeline:   pl,
		maxUpload:  cfg.Pipeline.MaxUploadBytes,
		timeoutSec: cfg.Server.TimeoutSec,
	}, nil
}

// NewServerWithPipeline wraps an already-built pipeline. Used by tests.
func NewServerWithPipeline(pl *pipeline.Pipeline, cfg config.ServerConfig) *Server {
	return &Server{
		pipeline:   pl,
		maxUpload:  pl.Config().MaxUploadBytes,
		timeoutSec: cfg.TimeoutSec,
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.metricsMiddleware(s.healthHandler))
	mux.HandleFunc("/scan", s.metricsMiddleware(s.scanHandler))
	mux.HandleFunc("/scan/ws", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// resultFromRun converts a pipeline result into its wire form.
func resultFromRun(res *pipeline.Result, elapsedMs int64) *ScanResult {
	out := &ScanResult{
		Stage:            res.StageReached,
		Rectified:        res.WasRectified,
		ProcessingTimeMs: elapsedMs,
	}
	if res.Boundary != nil {
		out.Detected = res.Boundary.Detected
		out.BoundaryQuality = res.Boundary.Confidence
	}
	if res.OCR != nil {
		out.Text = res.OCR.Text
		out.OCRConfidence = res.OCR.Confidence
	}
	if res.Amount != nil {
		out.Amount = res.Amount.Value
		out.AmountConfidence = res.Amount.Confidence
	}
	return out
}
