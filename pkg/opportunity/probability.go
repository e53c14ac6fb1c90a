package opportunity

import (
	"time"

	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/shopspring/decimal"
)

var highValueThreshold = decimal.NewFromInt(100000)

// Probability adjustments applied on top of the stage default.
const (
	bonusHighValue        = 5
	bonusFullContact      = 5
	bonusDecisionMaker    = 10
	bonusTeam             = 5
	bonusFollowUpPlanned  = 3
	penaltyNoAmount       = -10
	penaltyNoEmail        = -5
	penaltyCompetition    = -10
	penaltyOverdueClosing = -15
)

// CalculateProbability derives the win probability (0-100) from the deal's
// current attributes. Won deals are always 100, lost and cancelled deals 0.
func CalculateProbability(o *Opportunity, now time.Time) decimal.Decimal {
	switch o.Status {
	case pipeline.StatusWon:
		return decimal.NewFromInt(100)
	case pipeline.StatusLost, pipeline.StatusCancelled:
		return decimal.Zero
	}

	p := pipeline.CatalogFor(o.Pipeline).DefaultProbability(o.Stage)

	if o.HasAmount() && o.Amount.Decimal.GreaterThan(highValueThreshold) {
		p += bonusHighValue
	}
	if o.ContactEmail != "" && o.ContactPhone != "" {
		p += bonusFullContact
	}
	if o.DecisionMaker != "" {
		p += bonusDecisionMaker
	}
	if len(o.TeamMembers) > 1 {
		p += bonusTeam
	}
	if o.FollowUpDate != nil && o.FollowUpDate.After(now) {
		p += bonusFollowUpPlanned
	}

	if !o.HasAmount() {
		p += penaltyNoAmount
	}
	if o.ContactEmail == "" {
		p += penaltyNoEmail
	}
	if o.Competitors != "" {
		p += penaltyCompetition
	}
	if o.ExpectedCloseDate != nil && o.ExpectedCloseDate.Before(now) {
		p += penaltyOverdueClosing
	}

	return decimal.NewFromInt(int64(clamp(p, 0, 100)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
