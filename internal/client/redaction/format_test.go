package redaction

import (
	"encoding/base64"
	"testing"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatDetections(t *testing.T) {
	res := &models.DetectionResult{
		DetectionsCount: 2,
		Detections: []models.BoundingBox{
			{X1: 1, Y1: 2, X2: 3, Y2: 4, Confidence: 0.873},
			{X1: 5, Y1: 6, X2: 7, Y2: 8, Confidence: 0.5},
		},
	}

	want := "Detected sensitive regions: 2\n" +
		"1. [1, 2] - [3, 4] (87%)\n" +
		"2. [5, 6] - [7, 8] (50%)"
	assert.Equal(t, want, FormatDetections(res))
}

func TestFormatDetections_KeepsBackendOrderAndFractions(t *testing.T) {
	res := &models.DetectionResult{
		Detections: []models.BoundingBox{
			{X1: 10.5, Y1: 0, X2: 20.25, Y2: 5, Confidence: 0.999},
			{X1: 1, Y1: 1, X2: 2, Y2: 2, Confidence: 0.004},
		},
	}

	want := "Detected sensitive regions: 2\n" +
		"1. [10.5, 0] - [20.25, 5] (100%)\n" +
		"2. [1, 1] - [2, 2] (0%)"
	assert.Equal(t, want, FormatDetections(res))
}

func TestFormatDetections_None(t *testing.T) {
	assert.Equal(t, "Detected sensitive regions: 0", FormatDetections(&models.DetectionResult{}))
}

func TestDetectionCount(t *testing.T) {
	boxes := []models.BoundingBox{{X1: 1}}
	assert.Equal(t, 3, DetectionCount(&models.DetectionResult{DetectionsCount: 3, Detections: boxes}))
	assert.Equal(t, 1, DetectionCount(&models.DetectionResult{Detections: boxes}))
	assert.Zero(t, DetectionCount(&models.DetectionResult{}))
}

func TestImageRef(t *testing.T) {
	pngBytes := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBytes := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	png64 := base64.StdEncoding.EncodeToString(pngBytes)
	jpeg64 := base64.StdEncoding.EncodeToString(jpegBytes)

	tests := []struct {
		name string
		res  models.DetectionResult
		want string
	}{
		{name: "png payload", res: models.DetectionResult{RedactedImageBase64: png64}, want: "data:image/png;base64," + png64},
		{name: "jpeg payload", res: models.DetectionResult{RedactedImageBase64: jpeg64}, want: "data:image/jpeg;base64," + jpeg64},
		{name: "data uri passthrough", res: models.DetectionResult{RedactedImageBase64: "data:image/webp;base64,AAAA"}, want: "data:image/webp;base64,AAAA"},
		{name: "undecodable payload is dropped", res: models.DetectionResult{RedactedImageBase64: "%%%"}, want: ""},
		{name: "undecodable payload falls back to url", res: models.DetectionResult{RedactedImageBase64: "%%%", RedactedImageURL: "http://minio/redacted/b.png"}, want: "http://minio/redacted/b.png"},
		{name: "url only", res: models.DetectionResult{RedactedImageURL: "http://minio/redacted/a.png"}, want: "http://minio/redacted/a.png"},
		{name: "payload wins over url", res: models.DetectionResult{RedactedImageBase64: png64, RedactedImageURL: "http://x"}, want: "data:image/png;base64," + png64},
		{name: "nothing", res: models.DetectionResult{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageRef(&tt.res))
		})
	}
}

func TestDecodeImage(t *testing.T) {
	pngBytes := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	enc := base64.StdEncoding.EncodeToString(pngBytes)

	data, ct, ok := DecodeImage(&models.DetectionResult{RedactedImageBase64: "data:image/png;base64," + enc})
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, pngBytes, data)

	_, _, ok = DecodeImage(&models.DetectionResult{RedactedImageURL: "http://x"})
	assert.False(t, ok)

	_, _, ok = DecodeImage(&models.DetectionResult{RedactedImageBase64: "!!"})
	assert.False(t, ok)
}
