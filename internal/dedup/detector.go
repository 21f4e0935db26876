// Package dedup decides whether an incoming posting is a duplicate of an
// already-stored one, and consolidates groups of duplicates down to a
// single retained posting.
package dedup

import (
	"context"
	"strings"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/internal/normalize"
	"jobradar/internal/storage"
	"jobradar/pkg/models"
)

// Confidence values are contracts of the tiered checks, not tunables.
const (
	confidenceExactURL    = 1.0
	confidencePrimaryHash = 0.95
	confidenceFuzzyHash   = 0.90
	confidenceSimilarity  = 0.85
)

// Similarity field weights (title/company/location/URL-domain). The 0.85
// threshold matches the source system's behavior; it has no documented
// derivation and is exposed in config for tuning.
const (
	titleWeight    = 0.40
	companyWeight  = 0.30
	locationWeight = 0.20
	domainWeight   = 0.10
)

// Result is the outcome of a duplicate check. SimilarJobs carries
// near-misses from the similarity tier so callers can consolidate even
// when nothing was flagged.
type Result struct {
	IsDuplicate     bool
	MatchedExisting *models.StoredPosting
	Confidence      float64
	SimilarJobs     []*models.StoredPosting
}

// Detector runs the tiered duplicate checks against a persistence store.
type Detector struct {
	store               storage.PersistenceStore
	similarityThreshold float64
	strictThreshold     float64
	candidateLimit      int
	logger              logging.Logger
}

// NewDetector creates a detector bound to a store.
func NewDetector(store storage.PersistenceStore, cfg *config.Config, logger logging.Logger) *Detector {
	return &Detector{
		store:               store,
		similarityThreshold: cfg.Dedup.SimilarityThreshold,
		strictThreshold:     cfg.Dedup.StrictThreshold,
		candidateLimit:      cfg.Dedup.CandidateLimit,
		logger:              logger.WithField("component", "dedup"),
	}
}

// IsDuplicate runs the tiers in priority order, short-circuiting on the
// first hit: exact URL, primary hash, fuzzy hashes, then weighted text
// similarity against stored postings from the same site.
func (d *Detector) IsDuplicate(ctx context.Context, posting models.NormalizedPosting) (*Result, error) {
	// Tier 1: exact URL within the same site
	existing, err := d.store.FindByURL(ctx, posting.Site, posting.NormalizedURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{IsDuplicate: true, MatchedExisting: existing, Confidence: confidenceExactURL}, nil
	}

	// Tier 2: primary hash
	existing, err = d.store.FindByHash(ctx, posting.PrimaryHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{IsDuplicate: true, MatchedExisting: existing, Confidence: confidencePrimaryHash}, nil
	}

	// Tier 3: fuzzy hashes
	for _, fh := range posting.FuzzyHashes {
		existing, err = d.store.FindByHash(ctx, fh)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Result{IsDuplicate: true, MatchedExisting: existing, Confidence: confidenceFuzzyHash}, nil
		}
	}

	// Tier 4: weighted token-set similarity within the same site
	candidates, err := d.store.FindBySite(ctx, posting.Site, d.candidateLimit)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, candidate := range candidates {
		score := similarity(posting, candidate.NormalizedPosting)
		// Only strictly above the threshold counts, matching the strict
		// check below.
		if score <= d.similarityThreshold {
			continue
		}
		if strictSimilarity(posting, candidate.NormalizedPosting) > d.strictThreshold {
			d.logger.Debug("Similarity tier flagged duplicate", map[string]interface{}{
				"site":  posting.Site,
				"score": score,
			})
			return &Result{
				IsDuplicate:     true,
				MatchedExisting: candidate,
				Confidence:      confidenceSimilarity,
				SimilarJobs:     result.SimilarJobs,
			}, nil
		}
		// Similar but below the strict bar: report without flagging so
		// callers may consolidate.
		result.SimilarJobs = append(result.SimilarJobs, candidate)
	}

	return result, nil
}

// similarity is the weighted token-set similarity across title, company,
// location and URL domain. Fields missing on either side drop out and
// their weight is redistributed.
func similarity(a, b models.NormalizedPosting) float64 {
	total := 0.0
	weightSum := 0.0

	add := func(weight, sim float64) {
		total += weight * sim
		weightSum += weight
	}

	add(titleWeight, jaccard(tokens(a.Title), tokens(b.Title)))
	if a.Company != "" && b.Company != "" {
		add(companyWeight, jaccard(tokens(a.Company), tokens(b.Company)))
	}
	if a.Location != "" && b.Location != "" {
		add(locationWeight, jaccard(tokens(a.Location), tokens(b.Location)))
	}
	domA, domB := normalize.URLDomain(a.URL), normalize.URLDomain(b.URL)
	if domA != "" && domB != "" {
		if domA == domB {
			add(domainWeight, 1.0)
		} else {
			add(domainWeight, 0.0)
		}
	}

	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// strictSimilarity is the stricter same-posting check over the combined
// title and company token sets.
func strictSimilarity(a, b models.NormalizedPosting) float64 {
	return jaccard(
		tokens(a.Title+" "+a.Company),
		tokens(b.Title+" "+b.Company),
	)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:()[]{}\"'")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}
