package archive

import (
	"context"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/client/repositories/results"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/jonboulle/clockwork"
)

// FetchFunc downloads an image by URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, string, error)

// Recorder archives the redacted image of each detection result and indexes
// it. Failures are logged and never reach the chat.
//
// Inline images are archived directly. When the result only carries a
// redacted image URL, Fetch (if set) downloads it first.
type Recorder struct {
	Archive Archive
	Results results.Repository
	Fetch   FetchFunc
	Clock   clockwork.Clock
	Log     logging.Logger
	Timeout time.Duration
}

// Record has the redaction.ResultHook signature.
func (r *Recorder) Record(ctx context.Context, chatID int64, res *models.DetectionResult) {
	log := r.Log
	if log == nil {
		log = logging.Nop()
	}
	clk := r.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	data, contentType, ok := redaction.DecodeImage(res)
	if !ok && res.RedactedImageURL != "" && r.Fetch != nil {
		var err error
		data, contentType, err = r.Fetch(ctx, res.RedactedImageURL)
		if err != nil {
			log.Warn(ctx, "fetch redacted image", "task_id", res.TaskID, "error", err)
			return
		}
		ok = true
	}
	if !ok {
		log.Debug(ctx, "no redacted image to archive", "task_id", res.TaskID)
		return
	}

	now := clk.Now()
	location, err := r.Archive.Put(ctx, Key(now, data, contentType), data, contentType)
	if err != nil {
		log.Warn(ctx, "archive redacted image", "task_id", res.TaskID, "error", err)
		return
	}

	if r.Results != nil && res.TaskID != "" {
		err = r.Results.Save(ctx, &models.ArchivedResult{
			TaskID:          res.TaskID,
			ChatID:          chatID,
			DetectionsCount: redaction.DetectionCount(res),
			Location:        location,
			CreatedAt:       now,
		})
		if err != nil {
			log.Warn(ctx, "index archived result", "task_id", res.TaskID, "error", err)
			return
		}
	}
	log.Info(ctx, "redacted image archived", "task_id", res.TaskID, "location", location)
}
