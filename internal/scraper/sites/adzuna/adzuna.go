// Package adzuna adapts the Adzuna public search API to the Site
// interface.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/pkg/models"
	"jobradar/pkg/utils"
)

const (
	defaultBaseURL = "https://api.adzuna.com/v1/api/jobs"
	pageSize       = 50
	maxPages       = 3 // max 150 results per query
)

// Adzuna fetches job postings from the Adzuna search API. Credentials
// come from config; a missing credential fails the search rather than
// silently returning nothing, so the run report shows the problem.
type Adzuna struct {
	cfg       config.SiteConfig
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    logging.Logger
}

// NewSite creates an Adzuna adapter from its site config.
func NewSite(cfg config.SiteConfig, userAgent string) *Adzuna {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	rpm := cfg.RateLimit
	if rpm <= 0 {
		rpm = 30
	}
	return &Adzuna{
		cfg:       cfg,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:    logging.GetGlobalLogger().WithField("site", "adzuna"),
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

func (a *Adzuna) IsHealthy() bool {
	return a.cfg.AppID != "" && a.cfg.APIKey != ""
}

// apiResponse mirrors the top-level Adzuna JSON response.
type apiResponse struct {
	Results []apiResult `json:"results"`
	Count   int         `json:"count"`
}

// apiResult mirrors a single Adzuna job listing.
type apiResult struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Company      displayName `json:"company"`
	Location     displayName `json:"location"`
	SalaryMin    float64     `json:"salary_min"`
	SalaryMax    float64     `json:"salary_max"`
	RedirectURL  string      `json:"redirect_url"`
	Created      string      `json:"created"`
	ContractTime string      `json:"contract_time"`
	ContractType string      `json:"contract_type"`
}

type displayName struct {
	DisplayName string `json:"display_name"`
}

// Search pages through results for the query until the API runs out or
// maxPages is reached.
func (a *Adzuna) Search(ctx context.Context, query models.SearchQuery) ([]models.RawPosting, error) {
	if a.cfg.AppID == "" || a.cfg.APIKey == "" {
		return nil, fmt.Errorf("adzuna credentials not configured")
	}

	var postings []models.RawPosting
	for page := 1; page <= maxPages; page++ {
		batch, err := a.fetchPage(ctx, query, page)
		if err != nil {
			return postings, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		postings = append(postings, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	a.logger.Debug("Adzuna search complete", map[string]interface{}{
		"what":     query.What,
		"where":    query.Where,
		"postings": len(postings),
	})
	return postings, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, query models.SearchQuery, page int) ([]models.RawPosting, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	country := utils.GetStringOrDefault(a.cfg.Country, "gb")
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.cfg.BaseURL, country, page)

	params := url.Values{}
	params.Set("app_id", a.cfg.AppID)
	params.Set("app_key", a.cfg.APIKey)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("what", query.What)
	if query.Where != "" {
		params.Set("where", query.Where)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	postings := make([]models.RawPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		postings = append(postings, toRawPosting(r))
	}
	return postings, nil
}

func toRawPosting(r apiResult) models.RawPosting {
	posting := models.RawPosting{
		Title:        r.Title,
		Company:      r.Company.DisplayName,
		Location:     r.Location.DisplayName,
		SalaryText:   salaryText(r.SalaryMin, r.SalaryMax),
		ContractText: contractText(r.ContractType, r.ContractTime),
		URL:          r.RedirectURL,
		Description:  r.Description,
		Site:         "adzuna",
	}
	if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
		posting.PostedAt = t
	}
	return posting
}

// salaryText renders the API's numeric bounds back into the textual form
// the normalizer parses, so all sites feed one parsing path.
func salaryText(min, max float64) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("%.0f - %.0f", min, max)
	case min > 0:
		return fmt.Sprintf("%.0f", min)
	case max > 0:
		return fmt.Sprintf("%.0f", max)
	default:
		return ""
	}
}

func contractText(contractType, contractTime string) string {
	if contractType != "" && contractTime != "" {
		return contractType + " " + contractTime
	}
	if contractType != "" {
		return contractType
	}
	return contractTime
}
