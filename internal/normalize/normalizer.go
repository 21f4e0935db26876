// Package normalize canonicalizes raw scraped postings into the fixed
// shape the rest of the pipeline operates on. Normalization never fails:
// unparsable fields degrade to their absent/default form.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"jobradar/pkg/models"
)

// RemoteLocation is the literal location value any remote-indicating
// posting is folded to.
const RemoteLocation = "Remote"

// Hourly and daily quotes are annualized before storage so salary ranges
// compare in the same unit.
const (
	hoursPerYear = 2080
	daysPerYear  = 260
)

var remoteIndicators = []string{"remote", "work from home", "wfh", "anywhere"}

var salaryLabels = []string{"salary:", "pay:"}

var annualQualifiers = []string{"per year", "per annum", "annually", "a year", "/yr", "/year"}

var hourlyIndicators = []string{"per hour", "an hour", "hourly", "/hr", "/hour", "p/h"}

var dailyIndicators = []string{"per day", "a day", "daily", "day rate", "/day", "p/d"}

// Trailing legal suffixes stripped from company names before hashing, so
// "Acme Inc" and "Acme" collapse to the same identity.
var companySuffixes = []string{"inc", "ltd", "llc", "corp", "co", "gmbh", "plc"}

// Seniority qualifiers stripped for the fuzzy title hash, catching the
// same role re-posted at different seniority phrasing.
var seniorityTokens = []string{"senior", "junior", "lead", "principal", "staff"}

var (
	controlRe    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?k?`)
	punctRe      = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Normalize canonicalizes a raw posting. It never returns an error: a
// salary that cannot be parsed is simply left absent.
func Normalize(raw models.RawPosting) models.NormalizedPosting {
	title := CleanText(raw.Title)
	company := CleanText(raw.Company)
	location := NormalizeLocation(raw.Location)
	salary, dayRate := ParseSalary(raw.SalaryText)
	normalizedURL := NormalizeURL(raw.URL)

	p := models.NormalizedPosting{
		Title:         title,
		Company:       company,
		Location:      location,
		ContractType:  InferContractType(raw.ContractText, raw.Title),
		Salary:        salary,
		DayRate:       dayRate,
		URL:           raw.URL,
		NormalizedURL: normalizedURL,
		Description:   CleanText(raw.Description),
		PostedAt:      raw.PostedAt,
		Site:          raw.Site,
	}

	p.PrimaryHash = PrimaryHash(normalizedURL, title, company)
	p.FuzzyHashes = FuzzyHashes(normalizedURL, title, company)

	return p
}

// CleanText collapses whitespace, strips control characters and trims.
func CleanText(s string) string {
	s = controlRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLocation folds remote-indicating location text to the literal
// RemoteLocation value, otherwise returns the cleaned text.
func NormalizeLocation(s string) string {
	cleaned := CleanText(s)
	lower := strings.ToLower(cleaned)
	for _, indicator := range remoteIndicators {
		if strings.Contains(lower, indicator) {
			return RemoteLocation
		}
	}
	return cleaned
}

// IsRemote reports whether a normalized location is the remote value.
func IsRemote(location string) bool {
	return location == RemoteLocation
}

// ParseSalary parses free-form salary text into an annualized range, and
// a separate per-day range when the source quoted a day rate. Returns
// (nil, nil) when no numbers are found.
func ParseSalary(text string) (salary, dayRate *models.SalaryRange) {
	cleaned := strings.ToLower(CleanText(text))
	if cleaned == "" {
		return nil, nil
	}

	for _, label := range salaryLabels {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, label))
	}
	for _, qualifier := range annualQualifiers {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, qualifier))
	}

	matches := numberRe.FindAllString(cleaned, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	values := make([]int, 0, len(matches))
	for _, m := range matches {
		// "100k" / "45.5k" shorthand for thousands
		scale := 1.0
		if strings.HasSuffix(m, "k") {
			m = strings.TrimSuffix(m, "k")
			scale = 1000
		}
		m = strings.ReplaceAll(m, ",", "")
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			values = append(values, int(f*scale))
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	low, high := values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}

	currency := detectCurrency(cleaned)

	multiplier := 1
	isDaily := containsAny(cleaned, dailyIndicators)
	switch {
	case containsAny(cleaned, hourlyIndicators):
		multiplier = hoursPerYear
	case isDaily:
		multiplier = daysPerYear
	}

	annualMin, annualMax := low*multiplier, high*multiplier
	salary = &models.SalaryRange{Min: &annualMin, Max: &annualMax, Currency: currency}

	if isDaily {
		dayMin, dayMax := low, high
		dayRate = &models.SalaryRange{Min: &dayMin, Max: &dayMax, Currency: currency}
	}

	return salary, dayRate
}

// InferContractType applies substring rules in priority order over the
// posting's contract text, falling back to the title. The permissive
// default is deliberate: an unlabelled posting is assumed permanent
// rather than excluded.
func InferContractType(contractText, title string) models.ContractType {
	text := strings.ToLower(CleanText(contractText))
	if text == "" {
		text = strings.ToLower(CleanText(title))
	}

	switch {
	case containsAny(text, []string{"contract", "contractor", "temp", "freelance"}):
		return models.ContractContract
	case containsAny(text, []string{"permanent", "full-time", "full time"}):
		return models.ContractPermanent
	case containsAny(text, []string{"part-time", "part time"}):
		return models.ContractPartTime
	case strings.Contains(text, "intern"):
		return models.ContractInternship
	default:
		return models.ContractPermanent
	}
}

// NormalizeURL strips the query string and fragment and lower-cases
// scheme, host and path, so tracking parameters do not split identity.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.ToLower(u.Path)
	return u.String()
}

// URLDomain extracts the lower-cased host of a URL, or "" if unparsable.
func URLDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// PrimaryHash is the deterministic identity hash of a posting, derived
// from normalized URL, title and company.
func PrimaryHash(normalizedURL, title, company string) string {
	return hashSegments(normalizedURL, hashText(title), hashCompany(company))
}

// FuzzyHashes returns alternate identity hashes: one without the company
// segment, and one with seniority tokens stripped from the title when
// that changes the title.
func FuzzyHashes(normalizedURL, title, company string) []string {
	hashes := []string{hashSegments(normalizedURL, hashText(title))}

	stripped := stripSeniority(title)
	if hashText(stripped) != hashText(title) {
		hashes = append(hashes, hashSegments(normalizedURL, hashText(stripped), hashCompany(company)))
	}

	return hashes
}

func hashSegments(segments ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(segments, "|")))
	return hex.EncodeToString(sum[:])
}

// hashText lower-cases and strips punctuation so formatting differences
// do not split identity.
func hashText(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// hashCompany additionally strips trailing legal suffixes.
func hashCompany(s string) string {
	cleaned := hashText(s)
	words := strings.Fields(cleaned)
	for len(words) > 1 {
		last := words[len(words)-1]
		if !isCompanySuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func isCompanySuffix(word string) bool {
	for _, suffix := range companySuffixes {
		if word == suffix {
			return true
		}
	}
	return false
}

func stripSeniority(title string) string {
	words := strings.Fields(title)
	kept := words[:0]
	for _, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".,"))
		if isSeniorityToken(lower) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isSeniorityToken(word string) bool {
	for _, token := range seniorityTokens {
		if word == token {
			return true
		}
	}
	return false
}

func detectCurrency(text string) string {
	switch {
	case strings.Contains(text, "$") || strings.Contains(text, "usd"):
		return "USD"
	case strings.Contains(text, "£") || strings.Contains(text, "gbp"):
		return "GBP"
	case strings.Contains(text, "€") || strings.Contains(text, "eur"):
		return "EUR"
	default:
		return ""
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
