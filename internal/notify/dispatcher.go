package notify

import (
	"context"
	"time"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/internal/storage"
	"jobradar/pkg/models"
)

// Dispatcher fans alerts out to the configured channel and records which
// postings have been alerted on.
type Dispatcher struct {
	channel Channel
	store   storage.PersistenceStore
	logger  logging.Logger
}

// NewDispatcher builds a dispatcher with the channel named in config.
// Unknown channel names fall back to the log channel.
func NewDispatcher(cfg *config.Config, store storage.PersistenceStore, logger logging.Logger) *Dispatcher {
	var channel Channel
	switch cfg.Notify.Channel {
	case "log", "":
		channel = NewLogChannel(logger)
	default:
		logger.Warn("Unknown notify channel, falling back to log", map[string]interface{}{
			"channel": cfg.Notify.Channel,
		})
		channel = NewLogChannel(logger)
	}
	return &Dispatcher{
		channel: channel,
		store:   store,
		logger:  logger.WithField("component", "dispatcher"),
	}
}

// Dispatch builds per-owner digests from the run's alerts, sends them,
// and flags the delivered postings. A channel failure is reported but
// does not flag anything, so those matches are re-alerted next run.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	postingsByOwner := make(map[string][]string)
	for _, a := range alerts {
		postingsByOwner[a.Match.OwnerID] = append(postingsByOwner[a.Match.OwnerID], a.PostingID)
	}

	var firstErr error
	for _, digest := range BuildDigests(alerts) {
		if err := d.channel.Send(ctx, digest); err != nil {
			d.logger.Error("Digest delivery failed", map[string]interface{}{
				"owner_id": digest.OwnerID,
				"channel":  d.channel.Name(),
				"error":    err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		sentAt := time.Now()
		for _, postingID := range postingsByOwner[digest.OwnerID] {
			if err := d.store.UpdatePostingFlags(ctx, postingID, &sentAt, models.StatusNone); err != nil {
				d.logger.Warn("Failed to flag alerted posting", map[string]interface{}{
					"posting_id": postingID,
					"error":      err.Error(),
				})
			}
		}
	}
	return firstErr
}
