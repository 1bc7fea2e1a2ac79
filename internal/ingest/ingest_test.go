package ingest_test

import (
	"bytes"
	"errors"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obraops/captura/internal/ingest"
	"github.com/obraops/captura/internal/testutil"
)

func TestIngestValidPNG(t *testing.T) {
	img := testutil.TextImage(320, 240, []string{"CAFETERIA EL SOL", "TOTAL $123.45"})
	data := testutil.EncodePNG(t, img)

	raster, err := ingest.NewIngestor(0).Ingest(data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "png", raster.Format)
	assert.Equal(t, 320, raster.Width)
	assert.Equal(t, 240, raster.Height)
	assert.Equal(t, int64(len(data)), raster.Bytes)
	require.NotNil(t, raster.Image)
}

func TestIngestValidJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testutil.SolidImage(64, 48, color.White), nil))

	raster, err := ingest.NewIngestor(0).Ingest(buf.Bytes(), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", raster.Format)
	assert.Equal(t, 64, raster.Width)
}

func TestIngestMimeTypeRejection(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.SolidImage(10, 10, color.White))

	tests := []struct {
		name string
		mime string
	}{
		{"pdf", "application/pdf"},
		{"text", "text/plain"},
		{"empty", ""},
		{"bare word", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.NewIngestor(0).Ingest(data, tt.mime)
			var invalid *ingest.InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.mime, invalid.MimeType)
		})
	}
}

func TestIngestMimeTypeCaseInsensitive(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.SolidImage(10, 10, color.White))
	_, err := ingest.NewIngestor(0).Ingest(data, " IMAGE/PNG ")
	assert.NoError(t, err)
}

func TestIngestPayloadTooLarge(t *testing.T) {
	in := ingest.NewIngestor(128)
	data := make([]byte, 256)

	_, err := in.Ingest(data, "image/png")
	var tooLarge *ingest.PayloadTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(256), tooLarge.Size)
	assert.Equal(t, int64(128), tooLarge.Limit)
}

func TestIngestDecodeFailure(t *testing.T) {
	_, err := ingest.NewIngestor(0).Ingest([]byte("not an image at all"), "image/png")
	var decodeErr *ingest.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Error(t, decodeErr.Unwrap())
}

func TestIngestSizeCheckedBeforeDecode(t *testing.T) {
	// An oversized payload is rejected on size even when the bytes are
	// not a decodable image.
	in := ingest.NewIngestor(8)
	_, err := in.Ingest(make([]byte, 64), "image/png")
	var tooLarge *ingest.PayloadTooLargeError
	assert.True(t, errors.As(err, &tooLarge))
}
