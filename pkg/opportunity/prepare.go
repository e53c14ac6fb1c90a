package opportunity

import (
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/shopspring/decimal"
)

const followUpLeadDays = 7

var hundred = decimal.NewFromInt(100)

// PrepareForPersist returns o with its derived fields brought up to date.
// It runs before every write and is idempotent:
//   - weighted_amount = amount * probability / 100, or NULL without an amount
//   - stage_order from the catalog when unset
//   - sales_cycle_days from created_at to closed_date, only when not yet computed
//   - follow_up_date defaults to seven days before expected_close_date
func PrepareForPersist(o Opportunity) Opportunity {
	if o.Amount.Valid {
		o.WeightedAmount = decimal.NewNullDecimal(o.Amount.Decimal.Mul(o.Probability).Div(hundred).Round(2))
	} else {
		o.WeightedAmount = decimal.NullDecimal{}
	}

	if o.StageOrder == 0 && o.Stage != "" {
		o.StageOrder = pipeline.CatalogFor(o.Pipeline).OrderOf(o.Stage)
	}

	if o.ClosedDate != nil && o.SalesCycleDays == nil && !o.CreatedAt.IsZero() {
		days := DaysBetween(o.CreatedAt, *o.ClosedDate)
		if days < 0 {
			days = 0
		}
		o.SalesCycleDays = &days
	}

	if o.ExpectedCloseDate != nil && o.FollowUpDate == nil {
		followUp := dateOf(*o.ExpectedCloseDate).AddDate(0, 0, -followUpLeadDays)
		o.FollowUpDate = &followUp
	}

	return o
}
