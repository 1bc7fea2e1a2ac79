package pipeline

import (
	"bytes"
	"image"
	"image/png"
	"time"

	"github.com/obraops/captura/internal/detector"
	"github.com/obraops/captura/internal/extract"
	"github.com/obraops/captura/internal/recognizer"
)

// Result is the immutable record of what happened during one capture run.
// Stages annotate it as they complete; it is the only entity handed to the
// external persistence collaborator once the user confirms.
type Result struct {
	Original     image.Image        `json:"-"`
	Rectified    image.Image        `json:"-"`
	Boundary     *detector.Boundary `json:"boundary,omitempty"`
	OCR          *recognizer.Result `json:"ocr,omitempty"`
	Amount       *extract.Amount    `json:"amount,omitempty"`
	StageReached Stage              `json:"stage_reached"`

	// WasRectified records whether perspective rectification actually ran,
	// as opposed to being skipped or degraded away.
	WasRectified bool `json:"was_rectified"`
}

// AuditBundle is the optional OCR metadata attached to a committed record
// for audit and debugging. It is not required for the record to be valid.
type AuditBundle struct {
	RawText              string  `json:"raw_text"`
	DetectionConfidence  float64 `json:"detection_confidence"`
	OCRConfidence        float64 `json:"ocr_confidence"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
	Rectified            bool    `json:"rectified"`
}

// CommittedExpense is the confirmed record handed to the external expense
// store. Amount, Description, and Date are whatever the user confirmed or
// edited, regardless of what the pipeline inferred.
type CommittedExpense struct {
	Amount      float64      `json:"amount"`
	Description string       `json:"description"`
	Date        time.Time    `json:"date"`
	Audit       *AuditBundle `json:"audit,omitempty"`

	// Encoded image payloads destined for the external object store.
	OriginalPNG  []byte `json:"-"`
	RectifiedPNG []byte `json:"-"`
}

// audit builds the metadata bundle from whatever the run produced.
func (r *Result) audit() *AuditBundle {
	b := &AuditBundle{Rectified: r.WasRectified}
	if r.Boundary != nil {
		b.DetectionConfidence = r.Boundary.Confidence
	}
	if r.OCR != nil {
		b.RawText = r.OCR.Text
		b.OCRConfidence = r.OCR.Confidence
	}
	if r.Amount != nil {
		b.ExtractionConfidence = r.Amount.Confidence
	}
	return b
}

func encodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
