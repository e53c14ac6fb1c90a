package leads

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want int
	}{
		{"empty lead", Lead{Priority: 1}, 0},
		{"contact details", Lead{Email: "a@b.test", Phone: "1", Priority: 1}, 20},
		{"company profile", Lead{CompanyName: "Acme", JobTitle: "CTO", Website: "https://acme.test", Priority: 1}, 25},
		{"value tier 100k", Lead{EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(100000)), Priority: 1}, 25},
		{"value tier 50k", Lead{EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(75000)), Priority: 1}, 20},
		{"value tier 10k", Lead{EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(10000)), Priority: 1}, 15},
		{"value tier 1k", Lead{EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(1000)), Priority: 1}, 10},
		{"value below tiers", Lead{EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(999)), Priority: 1}, 0},
		{"priority five", Lead{Priority: 5}, 20},
		{"industry is case insensitive", Lead{Industry: "Technology", Priority: 1}, 15},
		{"other industry", Lead{Industry: "retail", Priority: 1}, 0},
		{"employees 1000", Lead{Employees: intPtr(1000), Priority: 1}, 20},
		{"employees 120", Lead{Employees: intPtr(120), Priority: 1}, 15},
		{"employees 50", Lead{Employees: intPtr(50), Priority: 1}, 10},
		{"employees 10", Lead{Employees: intPtr(10), Priority: 1}, 5},
		{"employees 9", Lead{Employees: intPtr(9), Priority: 1}, 0},
		{
			"everything",
			Lead{
				Email: "a@b.test", Phone: "1", CompanyName: "Acme", JobTitle: "CTO", Website: "https://acme.test",
				EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(250000)), Priority: 5,
				Industry: "finance", Employees: intPtr(5000),
			},
			125,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(&tt.lead))
		})
	}
}

func TestRatingFor(t *testing.T) {
	assert.Equal(t, RatingHot, RatingFor(70))
	assert.Equal(t, RatingWarm, RatingFor(69))
	assert.Equal(t, RatingWarm, RatingFor(40))
	assert.Equal(t, RatingCold, RatingFor(39))
	assert.Equal(t, RatingCold, RatingFor(20))
	assert.Equal(t, "", RatingFor(19))
}
