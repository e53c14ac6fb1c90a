package leads

import (
	"strings"

	"github.com/shopspring/decimal"
)

var highValueIndustries = map[string]bool{
	"technology":    true,
	"finance":       true,
	"healthcare":    true,
	"manufacturing": true,
}

var valueTiers = []struct {
	min    decimal.Decimal
	points int
}{
	{decimal.NewFromInt(100000), 25},
	{decimal.NewFromInt(50000), 20},
	{decimal.NewFromInt(10000), 15},
	{decimal.NewFromInt(1000), 10},
}

var employeeTiers = []struct {
	min    int
	points int
}{
	{1000, 20},
	{100, 15},
	{50, 10},
	{10, 5},
}

// Score rates how promising a lead is from the data captured about it.
func Score(l *Lead) int {
	score := 0

	if l.Email != "" {
		score += 10
	}
	if l.Phone != "" {
		score += 10
	}
	if l.CompanyName != "" {
		score += 15
	}
	if l.JobTitle != "" {
		score += 5
	}
	if l.Website != "" {
		score += 5
	}

	if l.EstimatedValue.Valid {
		for _, tier := range valueTiers {
			if l.EstimatedValue.Decimal.GreaterThanOrEqual(tier.min) {
				score += tier.points
				break
			}
		}
	}

	if l.Priority > 1 {
		score += (l.Priority - 1) * 5
	}

	if highValueIndustries[strings.ToLower(strings.TrimSpace(l.Industry))] {
		score += 15
	}

	if l.Employees != nil {
		for _, tier := range employeeTiers {
			if *l.Employees >= tier.min {
				score += tier.points
				break
			}
		}
	}

	return score
}

// RatingFor maps a score to hot, warm or cold; low scores get no rating.
func RatingFor(score int) string {
	switch {
	case score >= 70:
		return RatingHot
	case score >= 40:
		return RatingWarm
	case score >= 20:
		return RatingCold
	default:
		return ""
	}
}

// rescore refreshes the score and rating of l.
func rescore(l *Lead) {
	l.Score = Score(l)
	l.Rating = RatingFor(l.Score)
}
