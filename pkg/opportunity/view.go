package opportunity

import (
	"time"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/users"
)

// View is an opportunity with its display-only derived attributes.
type View struct {
	*Opportunity
	PipelineLabel   string `json:"pipeline_label"`
	StageLabel      string `json:"stage_label"`
	ProbabilityBand string `json:"probability_band"`
	IsOverdue       bool   `json:"is_overdue"`
	DaysToClose     *int   `json:"days_to_close"`
	FormattedAmount string `json:"formatted_amount,omitempty"`
}

// NewView derives the display attributes of o as of now.
func NewView(o *Opportunity, now time.Time) View {
	return View{
		Opportunity:     o,
		PipelineLabel:   o.Pipeline.Label(),
		StageLabel:      o.Stage.Label(),
		ProbabilityBand: o.ProbabilityBand(),
		IsOverdue:       o.IsOverdue(now),
		DaysToClose:     o.DaysToClose(now),
		FormattedAmount: o.FormattedAmount(),
	}
}

// Details is the single-record view: people resolved, linked lead and recent history.
type Details struct {
	View
	Owner      *users.User         `json:"owner,omitempty"`
	Creator    *users.User         `json:"creator,omitempty"`
	Winner     *users.User         `json:"winner,omitempty"`
	Loser      *users.User         `json:"loser,omitempty"`
	Team       []users.User        `json:"team,omitempty"`
	Lead       *leads.Summary      `json:"lead,omitempty"`
	Activities []activity.Activity `json:"activities"`
}
