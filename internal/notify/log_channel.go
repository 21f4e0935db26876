package notify

import (
	"context"

	"jobradar/internal/logging"
)

// LogChannel writes digests to the structured log. It is the default
// channel and the fallback when no external channel is configured.
type LogChannel struct {
	logger logging.Logger
}

// NewLogChannel creates a log-backed delivery channel.
func NewLogChannel(logger logging.Logger) *LogChannel {
	return &LogChannel{logger: logger.WithField("component", "notify")}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, digest Digest) error {
	top := ""
	if len(digest.Matches) > 0 {
		top = digest.Matches[0].Posting.Title
	}
	c.logger.Info("Match digest", map[string]interface{}{
		"owner_id":  digest.OwnerID,
		"matches":   len(digest.Matches),
		"top_match": top,
	})
	return nil
}
