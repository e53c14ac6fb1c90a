package opportunity

import (
	"fmt"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/shopspring/decimal"
)

// TeamMember is a user collaborating on a deal.
type TeamMember struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// Opportunity is one sales deal tracked through a pipeline.
// Empty strings mean "not recorded".
type Opportunity struct {
	ID          int64  `json:"id"`
	CompanyID   int64  `json:"company_id"`
	UserID      *int64 `json:"user_id"`
	LeadID      *int64 `json:"lead_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AccountName string `json:"account_name,omitempty"`

	Pipeline   pipeline.Pipeline `json:"pipeline"`
	Stage      pipeline.Stage    `json:"stage"`
	StageOrder int               `json:"stage_order"`

	Amount            decimal.NullDecimal `json:"amount"`
	Currency          string              `json:"currency"`
	Probability       decimal.Decimal     `json:"probability"`
	WeightedAmount    decimal.NullDecimal `json:"weighted_amount"`
	ExpectedCloseDays *int                `json:"expected_close_days"`

	Status   pipeline.Status   `json:"status"`
	Priority pipeline.Priority `json:"priority"`
	Type     pipeline.DealType `json:"type,omitempty"`
	Source   pipeline.Source   `json:"source,omitempty"`

	ContactName    string   `json:"contact_name,omitempty"`
	ContactEmail   string   `json:"contact_email,omitempty"`
	ContactPhone   string   `json:"contact_phone,omitempty"`
	DecisionMaker  string   `json:"decision_maker,omitempty"`
	DecisionMakers []string `json:"decision_makers,omitempty"`

	Competitors           string `json:"competitors,omitempty"`
	CompetitiveAdvantages string `json:"competitive_advantages,omitempty"`
	CompetitiveWeaknesses string `json:"competitive_weaknesses,omitempty"`

	ExpectedCloseDate *time.Time `json:"expected_close_date"`
	NextSteps         string     `json:"next_steps,omitempty"`
	FollowUpDate      *time.Time `json:"follow_up_date"`

	TeamMembers []TeamMember `json:"team_members,omitempty"`
	CreatedBy   *int64       `json:"created_by"`
	WonBy       *int64       `json:"won_by"`
	LostBy      *int64       `json:"lost_by"`

	WonReason      string              `json:"won_reason,omitempty"`
	LostReason     string              `json:"lost_reason,omitempty"`
	ActualAmount   decimal.NullDecimal `json:"actual_amount"`
	ClosedDate     *time.Time          `json:"closed_date"`
	SalesCycleDays *int                `json:"sales_cycle_days"`

	CustomFields map[string]any `json:"custom_fields,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Notes        string         `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// HasAmount reports whether a non-zero amount is recorded.
func (o *Opportunity) HasAmount() bool {
	return o.Amount.Valid && !o.Amount.Decimal.IsZero()
}

// IsAssignedTo reports whether the user owns the deal or is on its team.
func (o *Opportunity) IsAssignedTo(userID int64) bool {
	if o.UserID != nil && *o.UserID == userID {
		return true
	}
	for _, m := range o.TeamMembers {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ProbabilityBand buckets the probability: high, medium, low or very-low.
func (o *Opportunity) ProbabilityBand() string {
	switch {
	case o.Probability.GreaterThanOrEqual(decimal.NewFromInt(75)):
		return "high"
	case o.Probability.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return "medium"
	case o.Probability.GreaterThanOrEqual(decimal.NewFromInt(25)):
		return "low"
	default:
		return "very-low"
	}
}

// IsOverdue reports whether an active deal is past its expected close date.
func (o *Opportunity) IsOverdue(now time.Time) bool {
	return o.Status == pipeline.StatusActive && o.ExpectedCloseDate != nil && o.ExpectedCloseDate.Before(now)
}

// DaysToClose returns whole days from today until the expected close date,
// negative when overdue, nil when no date is set.
func (o *Opportunity) DaysToClose(now time.Time) *int {
	if o.ExpectedCloseDate == nil {
		return nil
	}
	d := DaysBetween(now, *o.ExpectedCloseDate)
	return &d
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// FormattedAmount renders the amount with its currency symbol, e.g. "$1500.00".
func (o *Opportunity) FormattedAmount() string {
	if !o.HasAmount() {
		return ""
	}
	symbol, ok := currencySymbols[o.Currency]
	if !ok {
		symbol = o.Currency + " "
	}
	return fmt.Sprintf("%s%s", symbol, o.Amount.Decimal.StringFixed(2))
}

// Truncate to the calendar day in UTC; date columns carry no time of day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}
