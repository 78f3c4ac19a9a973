package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.ImagePublisher = (*LoggingImagePublisher)(nil)

// LoggingImagePublisher wraps an ImagePublisher with logging.
type LoggingImagePublisher struct {
	next   harvest.ImagePublisher
	logger *slog.Logger
}

// NewLoggingImagePublisher creates a new LoggingImagePublisher.
func NewLoggingImagePublisher(next harvest.ImagePublisher, logger *slog.Logger) *LoggingImagePublisher {
	return &LoggingImagePublisher{next: next, logger: logger}
}

// GenerateAndUpload delegates to the wrapped publisher and logs the result.
func (p *LoggingImagePublisher) GenerateAndUpload(ctx context.Context, id harvest.Identity, title string) (url string, err error) {
	defer func(begin time.Time) {
		p.logger.Info("image publish",
			"vertical", id.Vertical,
			"ref", id.Ref,
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.GenerateAndUpload(ctx, id, title)
}
