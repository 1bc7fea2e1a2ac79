package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine over a persistent gosseract client.
// The image is treated as a single contiguous block of text (PSM single
// block), which matches a rectified receipt.
//
// The engine serializes calls; the pipeline is single-flow per session so
// this never contends in practice.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	lang   string
}

// NewTesseractEngine constructs and configures a Tesseract client. Missing
// trained data for the language surfaces here as an error.
func NewTesseractEngine(cfg Config) (*TesseractEngine, error) {
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	whitelist := cfg.Whitelist
	if whitelist == "" {
		whitelist = DefaultWhitelist
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	return &TesseractEngine{client: client, lang: lang}, nil
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize encodes the raster as PNG, hands it to Tesseract, and
// aggregates per-word confidences into a 0-100 score.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, nil
	}
	return Result{Text: text, Confidence: e.meanWordConfidence()}, nil
}

// meanWordConfidence averages Tesseract's per-word confidences (0-100).
// No recognized words means confidence 0.
func (e *TesseractEngine) meanWordConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

// Close releases the Tesseract client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
