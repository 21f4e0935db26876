package models

import "time"

// ContractType is the canonical employment type of a posting.
type ContractType string

const (
	ContractPermanent  ContractType = "permanent"
	ContractContract   ContractType = "contract"
	ContractPartTime   ContractType = "part-time"
	ContractInternship ContractType = "internship"
	ContractUnknown    ContractType = ""
)

// ApplicationStatus tracks what the user has done with a posting.
type ApplicationStatus string

const (
	StatusNone         ApplicationStatus = "none"
	StatusApplied      ApplicationStatus = "applied"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusRejected     ApplicationStatus = "rejected"
	StatusOffer        ApplicationStatus = "offer"
)

// SalaryRange represents a parsed compensation range. A nil bound is
// unbounded on that side.
type SalaryRange struct {
	Min      *int   `json:"min,omitempty"`
	Max      *int   `json:"max,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Overlaps reports whether two ranges intersect, treating absent bounds
// as unbounded.
func (r *SalaryRange) Overlaps(other *SalaryRange) bool {
	if r == nil || other == nil {
		return false
	}
	if r.Min != nil && other.Max != nil && *other.Max < *r.Min {
		return false
	}
	if r.Max != nil && other.Min != nil && *other.Min > *r.Max {
		return false
	}
	return true
}

// RawPosting is a site-specific posting as produced by a site adapter.
// It exists only within one workflow run.
type RawPosting struct {
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	SalaryText   string    `json:"salary_text"`
	ContractText string    `json:"contract_text"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	PostedAt     time.Time `json:"posted_at"`
	Site         string    `json:"site"`
}

// NormalizedPosting is a RawPosting after canonicalization: cleaned text,
// parsed salary, canonical contract type and content hashes.
type NormalizedPosting struct {
	Title         string       `json:"title"`
	Company       string       `json:"company"`
	Location      string       `json:"location"`
	ContractType  ContractType `json:"contract_type"`
	Salary        *SalaryRange `json:"salary,omitempty"`   // annualized
	DayRate       *SalaryRange `json:"day_rate,omitempty"` // set when the source quoted a daily rate
	URL           string       `json:"url"`
	NormalizedURL string       `json:"normalized_url"`
	Description   string       `json:"description"`
	PostedAt      time.Time    `json:"posted_at"`
	Site          string       `json:"site"`
	PrimaryHash   string       `json:"primary_hash"`
	FuzzyHashes   []string     `json:"fuzzy_hashes,omitempty"`
}

// StoredPosting is a NormalizedPosting as held by the persistence store,
// with the bookkeeping flags duplicate consolidation merges.
type StoredPosting struct {
	ID                string            `json:"id"`
	NormalizedPosting NormalizedPosting `json:"posting"`
	AlertSentAt       *time.Time        `json:"alert_sent_at,omitempty"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	FoundAt           time.Time         `json:"found_at"`
}
