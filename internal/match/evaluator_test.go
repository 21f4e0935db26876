package match_test

import (
	"testing"

	"jobradar/internal/match"
	"jobradar/internal/normalize"
	"jobradar/pkg/models"
)

func intPtr(v int) *int { return &v }

func remoteProfile() models.SearchProfile {
	return models.SearchProfile{
		ID:      "p1",
		OwnerID: "u1",
		Title:   "Software Engineer",
		Location: models.LocationCriteria{
			RemoteAllowed: true,
		},
		SalaryRange: &models.SalaryRange{Min: intPtr(80000), Max: intPtr(120000), Currency: "USD"},
	}
}

func TestMatches_RemoteSeniorEngineerScenario(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:      "Senior Software Engineer",
		Location:   "Remote",
		SalaryText: "$100,000 - $130,000",
		URL:        "https://jobs.example.com/1",
		Site:       "example",
	})

	profile := remoteProfile()
	if !match.Matches(posting, profile) {
		t.Fatal("expected match: fuzzy title, remote pass, overlapping salary")
	}
	if score := match.ScorePair(posting, profile); score < 80 {
		t.Errorf("score = %d, want >= 80", score)
	}
}

func TestAllPassed_AgreesWithMatches(t *testing.T) {
	profile := remoteProfile()
	postings := []models.NormalizedPosting{
		normalize.Normalize(models.RawPosting{
			Title:      "Senior Software Engineer",
			Location:   "Remote",
			SalaryText: "$100,000 - $130,000",
			URL:        "https://jobs.example.com/1",
			Site:       "example",
		}),
		normalize.Normalize(models.RawPosting{
			Title:      "Data Analyst",
			Location:   "New York",
			SalaryText: "$60,000",
			URL:        "https://jobs.example.com/2",
			Site:       "example",
		}),
	}
	for _, posting := range postings {
		detail := match.Evaluate(posting, profile)
		if got, want := match.AllPassed(detail), match.Matches(posting, profile); got != want {
			t.Errorf("AllPassed(%q) = %v, Matches = %v", posting.Title, got, want)
		}
	}
}

func TestMatches_TitleFailureRejects(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:      "Data Analyst",
		Location:   "New York",
		SalaryText: "$60,000",
		URL:        "https://jobs.example.com/2",
		Site:       "example",
	})

	if match.Matches(posting, remoteProfile()) {
		t.Fatal("title failure must reject the whole pairing")
	}
}

func TestMatches_ANDSemantics(t *testing.T) {
	base := normalize.Normalize(models.RawPosting{
		Title:        "Software Engineer",
		Location:     "Remote",
		SalaryText:   "$100,000",
		ContractText: "Permanent",
		Description:  "We use Go and Kubernetes.",
		URL:          "https://jobs.example.com/3",
		Site:         "example",
	})

	passing := models.SearchProfile{
		Title:         "Software Engineer",
		Keywords:      []string{"go"},
		Location:      models.LocationCriteria{RemoteAllowed: true},
		ContractTypes: []models.ContractType{models.ContractPermanent},
		SalaryRange:   &models.SalaryRange{Min: intPtr(90000), Max: intPtr(120000)},
	}
	if !match.Matches(base, passing) {
		t.Fatal("all specified criteria pass, expected match")
	}

	// Flip one criterion at a time; each single failure must reject.
	failures := []func(p *models.SearchProfile){
		func(p *models.SearchProfile) { p.Title = "Accountant" },
		func(p *models.SearchProfile) { p.Keywords = []string{"cobol"} },
		func(p *models.SearchProfile) { p.ContractTypes = []models.ContractType{models.ContractInternship} },
		func(p *models.SearchProfile) { p.SalaryRange = &models.SalaryRange{Min: intPtr(150000), Max: intPtr(200000)} },
	}
	for i, mutate := range failures {
		profile := passing
		mutate(&profile)
		if match.Matches(base, profile) {
			t.Errorf("case %d: single failing criterion must reject the pairing", i)
		}
	}
}

func TestMatches_VacuousProfile(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:    "Anything At All",
		Location: "Leeds",
		URL:      "https://jobs.example.com/4",
	})
	empty := models.SearchProfile{OwnerID: "u1"}
	if !match.Matches(posting, empty) {
		t.Fatal("profile with no criteria matches everything vacuously")
	}
}

func TestTitleWordFraction(t *testing.T) {
	profile := models.SearchProfile{Title: "Senior Backend Software Engineer"}

	// 3 of 4 significant words appear: 75% >= 60%
	posting := normalize.Normalize(models.RawPosting{
		Title: "Backend Software Engineer (Python)",
		URL:   "https://jobs.example.com/5",
	})
	if !match.Matches(posting, profile) {
		t.Error("75% of significant title words should pass the 60% threshold")
	}

	// 1 of 4: fails
	posting = normalize.Normalize(models.RawPosting{
		Title: "Software Tester",
		URL:   "https://jobs.example.com/6",
	})
	if match.Matches(posting, profile) {
		t.Error("25% of significant title words must fail")
	}
}

func TestKeywords_AnyOfAndTokenMatch(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:       "Platform Engineer",
		Description: "You will own our aws deployment and lambda functions.",
		URL:         "https://jobs.example.com/7",
	})

	// Multi-word keyword matches token-wise even though the phrase never
	// appears contiguously.
	profile := models.SearchProfile{Keywords: []string{"aws lambda"}}
	if !match.Matches(posting, profile) {
		t.Error("long keyword should match when all tokens appear")
	}

	// Any-of: one matching keyword of several is enough.
	profile = models.SearchProfile{Keywords: []string{"cobol", "platform"}}
	if !match.Matches(posting, profile) {
		t.Error("one matching keyword out of the set should pass")
	}

	profile = models.SearchProfile{Keywords: []string{"cobol", "fortran"}}
	if match.Matches(posting, profile) {
		t.Error("no matching keywords must fail")
	}
}

func TestLocation_AbbreviationVariants(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:    "Engineer",
		Location: "New York, NY",
		URL:      "https://jobs.example.com/8",
	})

	cases := []struct {
		city string
		want bool
	}{
		{"New York", true},
		{"NYC", true},
		{"ny", true},
		{"San Francisco", false},
	}
	for _, c := range cases {
		profile := models.SearchProfile{Location: models.LocationCriteria{City: c.city}}
		if got := match.Matches(posting, profile); got != c.want {
			t.Errorf("city %q match = %v, want %v", c.city, got, c.want)
		}
	}
}

func TestLocation_ShortAliasNeedsTokenBoundary(t *testing.T) {
	// "la" must not match inside "Glasgow"
	posting := normalize.Normalize(models.RawPosting{
		Title:    "Engineer",
		Location: "Glasgow",
		URL:      "https://jobs.example.com/9",
	})
	profile := models.SearchProfile{Location: models.LocationCriteria{City: "LA"}}
	if match.Matches(posting, profile) {
		t.Error("short alias should only match whole tokens")
	}
}

func TestContract_PermissiveOnUnknown(t *testing.T) {
	profile := models.SearchProfile{ContractTypes: []models.ContractType{models.ContractContract}}

	posting := models.NormalizedPosting{Title: "Engineer", ContractType: models.ContractUnknown}
	if !match.Matches(posting, profile) {
		t.Error("unknown posting contract type passes permissively")
	}

	posting.ContractType = models.ContractPermanent
	if match.Matches(posting, profile) {
		t.Error("known non-accepted type must fail")
	}
}

func TestSalary_DayRateBranch(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:      "Contract Engineer",
		SalaryText: "£500 per day",
		URL:        "https://jobs.example.com/10",
	})

	profile := models.SearchProfile{
		DayRateRange: &models.SalaryRange{Min: intPtr(400), Max: intPtr(600), Currency: "GBP"},
	}
	if !match.Matches(posting, profile) {
		t.Error("day-rate overlap should pass via the day-rate branch")
	}

	profile.DayRateRange = &models.SalaryRange{Min: intPtr(600), Max: intPtr(800)}
	if match.Matches(posting, profile) {
		t.Error("non-overlapping day rates must fail")
	}
}

func TestSalary_UnboundedProfileBounds(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:      "Engineer",
		SalaryText: "$200,000",
		URL:        "https://jobs.example.com/11",
	})
	// Only a floor: no upper bound means 200k passes.
	profile := models.SearchProfile{
		SalaryRange: &models.SalaryRange{Min: intPtr(100000)},
	}
	if !match.Matches(posting, profile) {
		t.Error("absent max bound is unbounded")
	}
}
