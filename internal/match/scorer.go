package match

import (
	"math"

	"jobradar/pkg/models"
)

// Fixed criterion weights, summing to 100. Scores rank matches within a
// consolidated alert; they never decide match/no-match.
const (
	titleWeight    = 30
	keywordsWeight = 25
	locationWeight = 20
	contractWeight = 15
	salaryWeight   = 10
)

// unsetCredit is the share of a criterion's weight awarded when the
// profile left it unspecified.
const unsetCredit = 0.5

// partialLocationCredit is awarded for a non-remote location match;
// remote matches earn full weight.
const partialLocationCredit = 0.75

// Score computes the 0-100 relevance score for a pairing that already
// passed Evaluate. Deterministic: identical detail always yields the
// identical score.
func Score(detail models.MatchDetail) int {
	total := 0.0

	total += proportionalScore(detail.Title, titleWeight)
	total += proportionalScore(detail.Keywords, keywordsWeight)
	total += locationScore(detail)
	total += binaryScore(detail.Contract, contractWeight)
	total += binaryScore(detail.Salary, salaryWeight)

	score := int(math.Round(total))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ScorePair is a convenience wrapper evaluating and scoring in one step.
func ScorePair(posting models.NormalizedPosting, profile models.SearchProfile) int {
	return Score(Evaluate(posting, profile))
}

func proportionalScore(c models.CriterionResult, weight float64) float64 {
	if !c.Specified {
		return weight * unsetCredit
	}
	return weight * c.Fraction
}

func locationScore(detail models.MatchDetail) float64 {
	if !detail.Location.Specified {
		return locationWeight * partialLocationCredit
	}
	if detail.Remote {
		return locationWeight
	}
	return locationWeight * partialLocationCredit
}

func binaryScore(c models.CriterionResult, weight float64) float64 {
	if !c.Specified {
		return weight * unsetCredit
	}
	if c.Fraction >= 1.0 {
		return weight
	}
	// Vacuous pass (no figure to compare against) earns half credit
	return weight * c.Fraction
}
