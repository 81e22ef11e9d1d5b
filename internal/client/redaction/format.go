package redaction

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/client/models"
)

const (
	// ImagePrompt is the assistant reply to a text-only turn.
	ImagePrompt = "Please attach an image and I will look for license plates and other sensitive regions to redact."

	// Apology is appended when a turn fails for any reason other than
	// authentication.
	Apology = "Sorry, something went wrong while processing your request. Please try again."

	// AttachmentPlaceholder prefixes the file name in the user message of a
	// turn that carries only an attachment.
	AttachmentPlaceholder = "Attachment: "
)

// FormatDetections renders a result as assistant text: a summary line and one
// line per box, in backend order.
//
//	Detected sensitive regions: 2
//	1. [1, 2] - [3, 4] (87%)
//	2. [5, 6] - [7, 8] (50%)
func FormatDetections(res *models.DetectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected sensitive regions: %d", DetectionCount(res))
	for i, d := range res.Detections {
		fmt.Fprintf(&b, "\n%d. [%s, %s] - [%s, %s] (%d%%)",
			i+1, coord(d.X1), coord(d.Y1), coord(d.X2), coord(d.Y2), percent(d.Confidence))
	}
	return b.String()
}

// DetectionCount is the backend's reported count, or the number of boxes when
// the backend left it out.
func DetectionCount(res *models.DetectionResult) int {
	if res.DetectionsCount > 0 {
		return res.DetectionsCount
	}
	return len(res.Detections)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// ImageRef returns the image reference for the assistant message: a data URI
// for a decodable inline payload, else the backend's redacted image URL,
// else "".
func ImageRef(res *models.DetectionResult) string {
	raw, _, ok := DecodeImage(res)
	if !ok {
		return res.RedactedImageURL
	}
	payload := strings.TrimSpace(res.RedactedImageBase64)
	if strings.HasPrefix(payload, "data:") {
		return payload
	}

	mime := "image/png"
	if sniffed := http.DetectContentType(raw); strings.HasPrefix(sniffed, "image/") {
		mime = sniffed
	}
	return "data:" + mime + ";base64," + payload
}

// DecodeImage returns the raw bytes and content type of an inline payload.
// ok is false when the result carries no decodable image.
func DecodeImage(res *models.DetectionResult) (data []byte, contentType string, ok bool) {
	payload := strings.TrimSpace(res.RedactedImageBase64)
	if payload == "" {
		return nil, "", false
	}
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", false
	}
	return raw, http.DetectContentType(raw), true
}
