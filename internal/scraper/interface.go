package scraper

import (
	"context"
	"strings"

	"jobradar/pkg/models"
)

// QueryFromProfile projects a search profile into the site query.
func QueryFromProfile(profile models.SearchProfile) models.SearchQuery {
	terms := []string{}
	if profile.Title != "" {
		terms = append(terms, profile.Title)
	}
	terms = append(terms, profile.Keywords...)

	where := ""
	if !profile.Location.RemoteAllowed {
		switch {
		case profile.Location.City != "":
			where = profile.Location.City
		case profile.Location.State != "":
			where = profile.Location.State
		case profile.Location.Country != "":
			where = profile.Location.Country
		}
	}

	return models.SearchQuery{
		What:  strings.Join(terms, " "),
		Where: where,
	}
}

// Site defines the interface for all job-board adapters.
type Site interface {
	// Name returns the adapter's site identifier as used in config,
	// dedup scoping and circuit-breaker keys.
	Name() string

	// Search fetches raw postings for the given query. Adapters return
	// site-specific raw postings; normalization happens downstream.
	Search(ctx context.Context, query models.SearchQuery) ([]models.RawPosting, error)

	// IsHealthy returns true if the adapter is ready to serve searches.
	IsHealthy() bool
}

// SiteFactory creates site adapters by name.
type SiteFactory interface {
	// CreateSite creates a new adapter instance for the named site.
	CreateSite(name string) (Site, error)

	// GetSupportedSites returns a list of supported site names.
	GetSupportedSites() []string
}
