package match_test

import (
	"testing"

	"jobradar/internal/match"
	"jobradar/internal/normalize"
	"jobradar/pkg/models"
)

func TestScore_Deterministic(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:      "Senior Software Engineer",
		Location:   "Remote",
		SalaryText: "$100,000 - $130,000",
		URL:        "https://jobs.example.com/1",
	})
	profile := remoteProfile()

	first := match.ScorePair(posting, profile)
	for i := 0; i < 10; i++ {
		if got := match.ScorePair(posting, profile); got != first {
			t.Fatalf("score changed across calls: %d vs %d", got, first)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:        "Software Engineer",
		Location:     "Remote",
		SalaryText:   "$100,000",
		ContractText: "Permanent",
		Description:  "go kubernetes",
		URL:          "https://jobs.example.com/2",
	})
	full := models.SearchProfile{
		Title:         "Software Engineer",
		Keywords:      []string{"go", "kubernetes"},
		Location:      models.LocationCriteria{RemoteAllowed: true},
		ContractTypes: []models.ContractType{models.ContractPermanent},
		SalaryRange:   &models.SalaryRange{Min: intPtr(90000), Max: intPtr(110000)},
	}

	score := match.ScorePair(posting, full)
	if score != 100 {
		t.Errorf("every criterion fully satisfied, score = %d, want 100", score)
	}
}

func TestScore_ProportionalTitleAndKeywords(t *testing.T) {
	posting := normalize.Normalize(models.RawPosting{
		Title:       "Backend Software Engineer",
		Description: "We use Go.",
		Location:    "Remote",
		URL:         "https://jobs.example.com/3",
	})

	// 3 of 4 title words, 1 of 2 keywords
	profile := models.SearchProfile{
		Title:    "Senior Backend Software Engineer",
		Keywords: []string{"go", "rust"},
		Location: models.LocationCriteria{RemoteAllowed: true},
	}

	detail := match.Evaluate(posting, profile)
	if detail.Title.Fraction != 0.75 {
		t.Errorf("title fraction = %v, want 0.75", detail.Title.Fraction)
	}
	if detail.Keywords.Fraction != 0.5 {
		t.Errorf("keyword fraction = %v, want 0.5", detail.Keywords.Fraction)
	}

	// title 22.5 + keywords 12.5 + location 20 + contract 7.5 + salary 5
	if score := match.Score(detail); score != 68 {
		t.Errorf("score = %d, want 68", score)
	}
}

func TestScore_RemoteEarnsFullLocationWeight(t *testing.T) {
	remote := normalize.Normalize(models.RawPosting{
		Title:    "Engineer",
		Location: "Remote",
		URL:      "https://jobs.example.com/4",
	})
	onsite := normalize.Normalize(models.RawPosting{
		Title:    "Engineer",
		Location: "New York",
		URL:      "https://jobs.example.com/5",
	})
	profile := models.SearchProfile{
		Title:    "Engineer",
		Location: models.LocationCriteria{RemoteAllowed: true},
	}

	remoteScore := match.ScorePair(remote, profile)
	onsiteScore := match.ScorePair(onsite, profile)
	if remoteScore <= onsiteScore {
		t.Errorf("remote match should outrank onsite: %d vs %d", remoteScore, onsiteScore)
	}
}
