// Package archive stores redacted images returned by the backend, either in
// a local directory or in an S3-compatible bucket, and indexes them in the
// local database.
package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

type Archive interface {
	// Put stores data under key and returns where it ended up.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
}

// Key returns redacted/YYYY/MM/DD/<blake2b-256 of data>.<ext>. Identical
// images map to the same key.
func Key(now time.Time, data []byte, contentType string) string {
	sum := blake2b.Sum256(data)
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))]
	if !ok {
		ext = ".bin"
	}
	now = now.UTC()
	return fmt.Sprintf("redacted/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), hex.EncodeToString(sum[:]), ext)
}
