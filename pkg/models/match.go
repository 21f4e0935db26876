package models

import "time"

// CriterionResult is the pass/fail detail for one profile criterion. The
// fraction feeds the scoring engine: for title and keywords it is the
// share of significant words / keywords found, for the rest it is 0 or 1.
type CriterionResult struct {
	Specified bool    `json:"specified"`
	Passed    bool    `json:"passed"`
	Fraction  float64 `json:"fraction"`
}

// MatchDetail carries the per-criterion evaluation used to compute the
// relevance score.
type MatchDetail struct {
	Title    CriterionResult `json:"title"`
	Keywords CriterionResult `json:"keywords"`
	Location CriterionResult `json:"location"`
	Contract CriterionResult `json:"contract"`
	Salary   CriterionResult `json:"salary"`
	Remote   bool            `json:"remote"` // true when the pairing matched on a remote posting
}

// MatchResult pairs one normalized posting with one profile it satisfies.
// Persisted exactly once per (posting, profile) pair; duplicate detection
// upstream enforces the uniqueness.
type MatchResult struct {
	ID        string            `json:"id"`
	ProfileID string            `json:"profile_id"`
	OwnerID   string            `json:"owner_id"`
	Posting   NormalizedPosting `json:"posting"`
	Score     int               `json:"score"` // 0-100, ranking only
	Detail    MatchDetail       `json:"detail"`
	MatchedAt time.Time         `json:"matched_at"`
}
