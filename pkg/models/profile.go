package models

// LocationCriteria describes where a user is willing to work.
type LocationCriteria struct {
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	RemoteAllowed bool   `json:"remote_allowed"`
}

// Empty reports whether no geographic constraint is set.
func (l LocationCriteria) Empty() bool {
	return l.City == "" && l.State == "" && l.Country == ""
}

// SearchQuery is what a site adapter needs from a search profile. Site
// adapters never see the full profile; matching stays in the pipeline.
type SearchQuery struct {
	// What is the free-text search term (title plus keywords).
	What string

	// Where is the geographic search term; empty for remote-only or
	// unconstrained profiles.
	Where string
}

// SearchProfile is a user's saved search criteria. A zero-value field
// means the criterion is unspecified and is vacuously satisfied.
// Profiles are immutable for the duration of one workflow run.
type SearchProfile struct {
	ID            string           `json:"id"`
	OwnerID       string           `json:"owner_id" validate:"required"`
	Title         string           `json:"title,omitempty"`
	Keywords      []string         `json:"keywords,omitempty"`
	Location      LocationCriteria `json:"location"`
	ContractTypes []ContractType   `json:"contract_types,omitempty"`
	SalaryRange   *SalaryRange     `json:"salary_range,omitempty"`
	DayRateRange  *SalaryRange     `json:"day_rate_range,omitempty"`
}

// AcceptsContract reports whether the profile accepts the given canonical
// contract type. An empty accepted set or an unknown posting type passes
// permissively.
func (p *SearchProfile) AcceptsContract(ct ContractType) bool {
	if len(p.ContractTypes) == 0 || ct == ContractUnknown {
		return true
	}
	for _, accepted := range p.ContractTypes {
		if accepted == ct {
			return true
		}
	}
	return false
}
