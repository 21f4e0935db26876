package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jobradar/internal/config"
	"jobradar/internal/retry"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"
)

// SitesHandler lists the configured site adapters and whether each is
// enabled.
func SitesHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		sites := make([]map[string]interface{}, 0, len(cfg.Scraper.Sites))
		for _, s := range cfg.Scraper.Sites {
			sites = append(sites, map[string]interface{}{
				"name":       s.Name,
				"enabled":    s.Enabled,
				"rate_limit": s.RateLimit,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"sites": sites,
		})
	}
}

// SiteStatsHandler reports retry and circuit-breaker statistics for one
// site's operation key.
func SiteStatsHandler(retrier *retry.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		site := c.Param("site")
		if site == "" {
			return utils.NewBadRequestError("Site parameter is required")
		}
		return c.JSON(http.StatusOK, models.SiteStatsResponse{
			Site:  site,
			Stats: retrier.Stats(site),
		})
	}
}

// AllSiteStatsHandler reports statistics for every site the retry
// handler has seen this process.
func AllSiteStatsHandler(retrier *retry.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats := make(map[string]interface{})
		for _, key := range retrier.Keys() {
			stats[key] = retrier.Stats(key)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"sites": stats,
		})
	}
}
