// Package ingest validates and decodes captured receipt photos before any
// pipeline processing runs.
package ingest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
)

// MaxPayloadBytes is the largest accepted capture payload (15 MB).
const MaxPayloadBytes = 15 * 1024 * 1024

// InvalidInputError reports a payload whose declared MIME type is not an image.
type InvalidInputError struct {
	MimeType string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: declared MIME type %q is not image/*", e.MimeType)
}

// PayloadTooLargeError reports a payload exceeding MaxPayloadBytes.
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}

// DecodeError reports an image payload that could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode image: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Raster is a decoded capture. The pixel data is owned by the pipeline run
// that created it and is never mutated by later stages.
type Raster struct {
	Image  image.Image
	Format string
	Width  int
	Height int
	Bytes  int64
}

// Ingestor validates capture payloads and decodes them to rasters.
type Ingestor struct {
	maxBytes int64
}

// NewIngestor returns an Ingestor with the given payload cap.
// A non-positive cap falls back to MaxPayloadBytes.
func NewIngestor(maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = MaxPayloadBytes
	}
	return &Ingestor{maxBytes: maxBytes}
}

// Ingest validates the declared MIME type and payload size, then decodes
// the bytes into a Raster. Validation and decode failures map to the typed
// errors above; no processing side effects occur.
func (in *Ingestor) Ingest(data []byte, mimeType string) (*Raster, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/") {
		return nil, &InvalidInputError{MimeType: mimeType}
	}
	if int64(len(data)) > in.maxBytes {
		return nil, &PayloadTooLargeError{Size: int64(len(data)), Limit: in.maxBytes}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := img.Bounds()
	return &Raster{
		Image:  img,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Bytes:  int64(len(data)),
	}, nil
}
