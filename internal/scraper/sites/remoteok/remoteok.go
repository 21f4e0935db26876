// Package remoteok scrapes the RemoteOK listings board. RemoteOK has no
// search API; the adapter fetches the tag-filtered HTML board and parses
// the listing rows.
package remoteok

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/pkg/models"
)

const defaultBaseURL = "https://remoteok.com"

var tagRe = regexp.MustCompile(`[^a-z0-9]+`)

// RemoteOK scrapes the HTML jobs board. All postings it yields are
// remote by construction.
type RemoteOK struct {
	cfg       config.SiteConfig
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    logging.Logger
}

// NewSite creates a RemoteOK adapter from its site config.
func NewSite(cfg config.SiteConfig, userAgent string) *RemoteOK {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	rpm := cfg.RateLimit
	if rpm <= 0 {
		rpm = 10
	}
	return &RemoteOK{
		cfg:       cfg,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:    logging.GetGlobalLogger().WithField("site", "remoteok"),
	}
}

func (r *RemoteOK) Name() string { return "remoteok" }

func (r *RemoteOK) IsHealthy() bool { return true }

// Search fetches the tag-filtered board for the query terms and parses
// the listing rows. The geographic term is ignored; every listing here
// is remote.
func (r *RemoteOK) Search(ctx context.Context, query models.SearchQuery) ([]models.RawPosting, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	boardURL := r.cfg.BaseURL
	if tag := searchTag(query.What); tag != "" {
		boardURL += "/remote-" + tag + "-jobs"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, boardURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteok returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	postings := r.parseBoard(doc)
	r.logger.Debug("RemoteOK search complete", map[string]interface{}{
		"url":      boardURL,
		"postings": len(postings),
	})
	return postings, nil
}

func (r *RemoteOK) parseBoard(doc *goquery.Document) []models.RawPosting {
	var postings []models.RawPosting

	doc.Find("tr.job").Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(`h2[itemprop="title"]`).First().Text())
		company := strings.TrimSpace(row.Find(`h3[itemprop="name"]`).First().Text())
		if title == "" {
			return
		}

		href, _ := row.Attr("data-href")
		if href == "" {
			if link := row.Find(`a[itemprop="url"]`).First(); link.Length() > 0 {
				href, _ = link.Attr("href")
			}
		}
		if href == "" {
			return
		}

		// Location cells carry both the region and the salary banner;
		// the salary one is marked with a money glyph.
		location := ""
		salaryText := ""
		row.Find("div.location").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			switch {
			case strings.Contains(text, "💰"):
				salaryText = strings.TrimSpace(strings.ReplaceAll(text, "💰", ""))
			case location == "" && text != "":
				location = text
			}
		})
		if location == "" {
			location = "Remote"
		}

		posting := models.RawPosting{
			Title:      title,
			Company:    company,
			Location:   location,
			SalaryText: salaryText,
			URL:        r.cfg.BaseURL + href,
			Site:       "remoteok",
		}
		if datetime, ok := row.Find("time").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, datetime); err == nil {
				posting.PostedAt = t
			}
		}
		postings = append(postings, posting)
	})

	return postings
}

// searchTag collapses the query terms into RemoteOK's URL tag form.
func searchTag(what string) string {
	tag := tagRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(what)), "-")
	return strings.Trim(tag, "-")
}
