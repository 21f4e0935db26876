package scraper

import (
	"fmt"

	"jobradar/internal/config"
	"jobradar/internal/scraper/sites/adzuna"
	"jobradar/internal/scraper/sites/remoteok"
	"jobradar/pkg/utils"
)

// DefaultSiteFactory implements SiteFactory
type DefaultSiteFactory struct {
	config *config.Config
}

// NewSiteFactory creates a new site adapter factory
func NewSiteFactory(cfg *config.Config) SiteFactory {
	return &DefaultSiteFactory{config: cfg}
}

// CreateSite creates a new adapter instance for the named site
func (f *DefaultSiteFactory) CreateSite(name string) (Site, error) {
	if !utils.Contains(f.GetSupportedSites(), name) {
		return nil, fmt.Errorf("unsupported site: %s", name)
	}
	siteCfg, ok := f.config.SiteConfig(name)
	if !ok {
		return nil, fmt.Errorf("site %q not configured", name)
	}
	if !siteCfg.Enabled {
		return nil, fmt.Errorf("site %q is disabled", name)
	}

	switch name {
	case "adzuna":
		return adzuna.NewSite(siteCfg, f.config.Scraper.UserAgent), nil
	case "remoteok":
		return remoteok.NewSite(siteCfg, f.config.Scraper.UserAgent), nil
	default:
		return nil, fmt.Errorf("unsupported site: %s", name)
	}
}

// GetSupportedSites returns a list of supported site names
func (f *DefaultSiteFactory) GetSupportedSites() []string {
	return []string{"adzuna", "remoteok"}
}
