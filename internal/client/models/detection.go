package models

// BoundingBox is a detected sensitive region: two corner points and the
// model confidence in [0,1].
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult is the response of POST /redact.
type DetectionResult struct {
	TaskID              string        `json:"task_id"`
	Status              string        `json:"status"`
	DetectionsCount     int           `json:"detections_count"`
	Detections          []BoundingBox `json:"detections"`
	RedactedImageBase64 string        `json:"redacted_image_base64,omitempty"`
	OriginalImageURL    string        `json:"original_image_url,omitempty"`
	RedactedImageURL    string        `json:"redacted_image_url,omitempty"`
}

// RedactOptions are the form fields sent along with the file.
type RedactOptions struct {
	ConfidenceThreshold float64
	ReturnImage         bool
}

// TaskLog is the response of GET /logs/{task_id}.
type TaskLog struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

// Upload is a file sent to POST /redact.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}
