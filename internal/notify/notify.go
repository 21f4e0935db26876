// Package notify delivers per-user digests of freshly persisted matches.
package notify

import (
	"context"
	"sort"
	"time"

	"jobradar/pkg/models"
)

// Alert pairs a persisted match with the stored posting it refers to, so
// delivery can flag the posting once the digest goes out.
type Alert struct {
	PostingID string
	Match     *models.MatchResult
}

// Digest is one user's batch of new matches from a single run, best
// score first.
type Digest struct {
	OwnerID     string
	Matches     []*models.MatchResult
	GeneratedAt time.Time
}

// Channel is a delivery mechanism for digests.
type Channel interface {
	// Name returns the channel identifier as used in config.
	Name() string

	// Send delivers one digest. A failed send leaves the postings
	// unflagged so the next run retries them.
	Send(ctx context.Context, digest Digest) error
}

// BuildDigests groups alerts by owner and orders each digest by score
// descending, ties broken by most recent match.
func BuildDigests(alerts []Alert) []Digest {
	byOwner := make(map[string][]*models.MatchResult)
	for _, a := range alerts {
		byOwner[a.Match.OwnerID] = append(byOwner[a.Match.OwnerID], a.Match)
	}

	now := time.Now()
	digests := make([]Digest, 0, len(byOwner))
	for owner, matches := range byOwner {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].MatchedAt.After(matches[j].MatchedAt)
		})
		digests = append(digests, Digest{OwnerID: owner, Matches: matches, GeneratedAt: now})
	}

	// Deterministic order for delivery and tests.
	sort.Slice(digests, func(i, j int) bool {
		return digests[i].OwnerID < digests[j].OwnerID
	})
	return digests
}
