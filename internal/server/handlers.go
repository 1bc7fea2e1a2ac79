package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/obraops/captura/internal/ingest"
	"github.com/obraops/captura/internal/pipeline"
	"github.com/obraops/captura/internal/recognizer"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// scanHandler runs one capture through the pipeline and returns the run's
// findings for client-side review.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	session := pipeline.NewSession(s.pipeline)
	res, err := session.Process(ctx, data, mimeType)
	elapsed := time.Since(start)

	if err != nil {
		s.writeScanError(w, err)
		return
	}

	scanRequestsTotal.WithLabelValues("ok").Inc()
	scanDuration.Observe(elapsed.Seconds())
	if res.Amount != nil && res.Amount.Value != nil {
		amountsExtractedTotal.Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	response := ScanResponse{Success: true, Result: resultFromRun(res, elapsed.Milliseconds())}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding scan response: %v\n", err)
	}
}

// writeScanError maps pipeline errors onto HTTP status codes. Input
// rejections are the client's fault; engine failures are ours.
func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	var (
		invalidInput *ingest.InvalidInputError
		tooLarge     *ingest.PayloadTooLargeError
		decodeErr    *ingest.DecodeError
		recognition  *recognizer.RecognitionError
	)
	switch {
	case errors.As(err, &tooLarge):
		s.writeErrorResponse(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.As(err, &invalidInput), errors.As(err, &decodeErr):
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &recognition):
		s.writeErrorResponse(w, "Text recognition failed", http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.writeErrorResponse(w, "Processing timed out", http.StatusGatewayTimeout)
	default:
		s.writeErrorResponse(w, "Processing failed", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON error response and records the metric.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	scanRequestsTotal.WithLabelValues("error").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := ScanResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding error response: %v\n", err)
	}
}
