// Package match decides whether a normalized posting satisfies a search
// profile and scores passing pairs for ranking. Matching is strict AND
// semantics across all specified criteria: one miss rejects the pairing,
// so alerts only fire on exact matches.
package match

import (
	"strings"

	"jobradar/internal/normalize"
	"jobradar/pkg/models"
)

// titleWordThreshold is the share of a profile title's significant words
// that must appear in the posting title when there is no verbatim match.
const titleWordThreshold = 0.6

// significantWordLen: words this short ("of", "at") carry no signal.
const significantWordLen = 2

// longKeywordLen: keywords longer than this also match when all of their
// tokens appear somewhere in the text, not only as one contiguous phrase.
const longKeywordLen = 4

// locationVariants folds common abbreviations both ways, so a profile
// saying "NY" still matches a posting in "New York".
var locationVariants = [][]string{
	{"new york", "ny", "nyc"},
	{"san francisco", "sf"},
	{"los angeles", "la"},
	{"united kingdom", "uk"},
	{"united states", "us", "usa"},
	{"washington", "dc"},
}

// Evaluate runs every criterion of the profile against the posting and
// returns the per-criterion detail. Unspecified criteria pass vacuously.
func Evaluate(posting models.NormalizedPosting, profile models.SearchProfile) models.MatchDetail {
	detail := models.MatchDetail{
		Title:    evaluateTitle(posting, profile),
		Keywords: evaluateKeywords(posting, profile),
		Contract: evaluateContract(posting, profile),
		Salary:   evaluateSalary(posting, profile),
		Remote:   normalize.IsRemote(posting.Location),
	}
	detail.Location = evaluateLocation(posting, profile)
	return detail
}

// Matches reports whether the posting satisfies every specified criterion
// of the profile.
func Matches(posting models.NormalizedPosting, profile models.SearchProfile) bool {
	return AllPassed(Evaluate(posting, profile))
}

// AllPassed reports whether every criterion in an evaluated detail passed.
// Callers that need the detail anyway use this instead of re-evaluating
// through Matches.
func AllPassed(d models.MatchDetail) bool {
	return d.Title.Passed && d.Keywords.Passed && d.Location.Passed && d.Contract.Passed && d.Salary.Passed
}

func evaluateTitle(posting models.NormalizedPosting, profile models.SearchProfile) models.CriterionResult {
	if profile.Title == "" {
		return models.CriterionResult{Specified: false, Passed: true}
	}

	postingTitle := strings.ToLower(posting.Title)
	profileTitle := strings.ToLower(profile.Title)

	if strings.Contains(postingTitle, profileTitle) {
		return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
	}

	words := significantWords(profileTitle)
	if len(words) == 0 {
		return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
	}

	found := 0
	for _, w := range words {
		if strings.Contains(postingTitle, w) {
			found++
		}
	}
	fraction := float64(found) / float64(len(words))
	return models.CriterionResult{
		Specified: true,
		Passed:    fraction >= titleWordThreshold,
		Fraction:  fraction,
	}
}

func evaluateKeywords(posting models.NormalizedPosting, profile models.SearchProfile) models.CriterionResult {
	if len(profile.Keywords) == 0 {
		return models.CriterionResult{Specified: false, Passed: true}
	}

	text := strings.ToLower(posting.Title + " " + posting.Description)

	found := 0
	for _, kw := range profile.Keywords {
		if keywordMatches(text, strings.ToLower(kw)) {
			found++
		}
	}
	return models.CriterionResult{
		Specified: true,
		Passed:    found > 0, // any-of semantics within the keyword set
		Fraction:  float64(found) / float64(len(profile.Keywords)),
	}
}

func keywordMatches(text, keyword string) bool {
	if strings.Contains(text, keyword) {
		return true
	}
	// Longer keywords also match token-wise: "aws lambda" matches text
	// mentioning both words apart.
	if len(keyword) > longKeywordLen {
		tokens := strings.Fields(keyword)
		if len(tokens) < 2 {
			return false
		}
		for _, tok := range tokens {
			if !strings.Contains(text, tok) {
				return false
			}
		}
		return true
	}
	return false
}

func evaluateLocation(posting models.NormalizedPosting, profile models.SearchProfile) models.CriterionResult {
	// A remote-acceptable profile has no location constraint at all.
	if profile.Location.RemoteAllowed {
		return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
	}

	if profile.Location.Empty() {
		return models.CriterionResult{Specified: false, Passed: true}
	}

	postingLocation := strings.ToLower(posting.Location)
	for _, term := range []string{profile.Location.City, profile.Location.State, profile.Location.Country} {
		if term == "" {
			continue
		}
		if locationTermMatches(postingLocation, strings.ToLower(term)) {
			return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
		}
	}
	return models.CriterionResult{Specified: true, Passed: false}
}

// locationTermMatches checks a profile location term against the posting
// location, folding abbreviation variants in both directions. Short terms
// compare token-wise so "la" does not hit "Glasgow".
func locationTermMatches(postingLocation, term string) bool {
	for _, candidate := range expandLocationTerm(term) {
		if len(candidate) <= 3 {
			if containsToken(postingLocation, candidate) {
				return true
			}
		} else if strings.Contains(postingLocation, candidate) {
			return true
		}
	}
	return false
}

func expandLocationTerm(term string) []string {
	for _, group := range locationVariants {
		for _, member := range group {
			if member == term {
				return group
			}
		}
	}
	return []string{term}
}

func containsToken(text, token string) bool {
	for _, t := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if t == token {
			return true
		}
	}
	return false
}

func evaluateContract(posting models.NormalizedPosting, profile models.SearchProfile) models.CriterionResult {
	if len(profile.ContractTypes) == 0 {
		return models.CriterionResult{Specified: false, Passed: true}
	}
	passed := profile.AcceptsContract(posting.ContractType)
	result := models.CriterionResult{Specified: true, Passed: passed}
	if passed {
		result.Fraction = 1.0
	}
	return result
}

func evaluateSalary(posting models.NormalizedPosting, profile models.SearchProfile) models.CriterionResult {
	if profile.SalaryRange == nil && profile.DayRateRange == nil {
		return models.CriterionResult{Specified: false, Passed: true}
	}

	// Day-rate postings compare against the profile's day-rate range when
	// one exists, instead of annualized figures.
	if posting.DayRate != nil && profile.DayRateRange != nil {
		if profile.DayRateRange.Overlaps(posting.DayRate) {
			return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
		}
		return models.CriterionResult{Specified: true, Passed: false}
	}

	if profile.SalaryRange != nil && posting.Salary != nil {
		if profile.SalaryRange.Overlaps(posting.Salary) {
			return models.CriterionResult{Specified: true, Passed: true, Fraction: 1.0}
		}
		return models.CriterionResult{Specified: true, Passed: false}
	}

	// Profile cares but the posting published no parseable figure: pass
	// permissively rather than hide the posting.
	return models.CriterionResult{Specified: true, Passed: true, Fraction: 0.5}
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) > significantWordLen {
			words = append(words, w)
		}
	}
	return words
}
