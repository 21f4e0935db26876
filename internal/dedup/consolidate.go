package dedup

import (
	"context"
	"sort"
	"time"

	"jobradar/pkg/models"
)

// SelectRetained picks the posting to keep from a duplicate group.
// Precedence: a posting with a non-default application status wins, then
// one that has already had an alert sent; ties within a tier go to the
// most recently found posting.
func SelectRetained(group []*models.StoredPosting) *models.StoredPosting {
	if len(group) == 0 {
		return nil
	}

	byRecency := make([]*models.StoredPosting, len(group))
	copy(byRecency, group)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].FoundAt.After(byRecency[j].FoundAt)
	})

	for _, p := range byRecency {
		if p.ApplicationStatus != models.StatusNone && p.ApplicationStatus != "" {
			return p
		}
	}
	for _, p := range byRecency {
		if p.AlertSentAt != nil {
			return p
		}
	}
	return byRecency[0]
}

// MergedFlags folds the alert/application bookkeeping of a duplicate
// group into the values the retained posting should carry. Alert time is
// the latest across the group; application status is the most recently
// set non-default one.
func MergedFlags(group []*models.StoredPosting) (*time.Time, models.ApplicationStatus) {
	var alertSentAt *time.Time
	status := models.StatusNone

	byRecency := make([]*models.StoredPosting, len(group))
	copy(byRecency, group)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].FoundAt.After(byRecency[j].FoundAt)
	})

	for _, p := range byRecency {
		if p.AlertSentAt != nil && (alertSentAt == nil || p.AlertSentAt.After(*alertSentAt)) {
			t := *p.AlertSentAt
			alertSentAt = &t
		}
		if status == models.StatusNone && p.ApplicationStatus != models.StatusNone && p.ApplicationStatus != "" {
			status = p.ApplicationStatus
		}
	}
	return alertSentAt, status
}

// Consolidate collapses a duplicate group to its retained posting:
// merged flags are written to the survivor and every other member is
// deleted. User-visible state is never lost in the collapse.
func (d *Detector) Consolidate(ctx context.Context, group []*models.StoredPosting) (*models.StoredPosting, error) {
	if len(group) == 0 {
		return nil, nil
	}
	if len(group) == 1 {
		return group[0], nil
	}

	retained := SelectRetained(group)
	alertSentAt, status := MergedFlags(group)

	if err := d.store.UpdatePostingFlags(ctx, retained.ID, alertSentAt, status); err != nil {
		return nil, err
	}
	retained.AlertSentAt = alertSentAt
	retained.ApplicationStatus = status

	for _, p := range group {
		if p.ID == retained.ID {
			continue
		}
		if err := d.store.DeletePosting(ctx, p.ID); err != nil {
			d.logger.Warn("Failed to delete consolidated duplicate", map[string]interface{}{
				"posting_id": p.ID,
				"error":      err.Error(),
			})
		}
	}

	d.logger.Info("Consolidated duplicate group", map[string]interface{}{
		"retained_id": retained.ID,
		"group_size":  len(group),
	})
	return retained, nil
}
