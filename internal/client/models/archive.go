package models

import "time"

// ArchivedResult records where a redacted image returned by the backend was
// stored.
type ArchivedResult struct {
	TaskID          string
	ChatID          int64
	DetectionsCount int
	Location        string
	CreatedAt       time.Time
}
