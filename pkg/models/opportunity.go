package models

import (
	"github.com/shopspring/decimal"
)

// TeamMemberInput assigns a user to a deal team.
type TeamMemberInput struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role" validate:"max=64"`
}

// CreateOpportunityRequest represents a new opportunity
type CreateOpportunityRequest struct {
	Title                 string            `json:"title" validate:"required,max=255"`
	Description           string            `json:"description"`
	AccountName           string            `json:"account_name" validate:"max=255"`
	Pipeline              string            `json:"pipeline" validate:"omitempty,oneof=sales customer_success renewal partnership"`
	Stage                 string            `json:"stage" validate:"required,max=64"`
	Amount                *decimal.Decimal  `json:"amount"`
	Currency              string            `json:"currency" validate:"omitempty,len=3"`
	ExpectedCloseDays     *int              `json:"expected_close_days" validate:"omitempty,min=1"`
	Priority              string            `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Type                  string            `json:"type" validate:"omitempty,oneof=new_business existing_business renewal expansion upsell cross_sell"`
	Source                string            `json:"source" validate:"omitempty,oneof=inbound outbound referral website social_media email_campaign cold_call trade_show partner other"`
	ContactName           string            `json:"contact_name" validate:"max=255"`
	ContactEmail          string            `json:"contact_email" validate:"omitempty,email,max=255"`
	ContactPhone          string            `json:"contact_phone" validate:"max=64"`
	DecisionMaker         string            `json:"decision_maker" validate:"max=255"`
	DecisionMakers        []string          `json:"decision_makers" validate:"dive,max=255"`
	Competitors           string            `json:"competitors" validate:"max=255"`
	CompetitiveAdvantages string            `json:"competitive_advantages"`
	CompetitiveWeaknesses string            `json:"competitive_weaknesses"`
	ExpectedCloseDate     *Date             `json:"expected_close_date"`
	NextSteps             string            `json:"next_steps"`
	FollowUpDate          *Date             `json:"follow_up_date"`
	UserID                *int64            `json:"user_id" validate:"omitempty,gt=0"`
	LeadID                *int64            `json:"lead_id" validate:"omitempty,gt=0"`
	TeamMembers           []TeamMemberInput `json:"team_members" validate:"dive"`
	Tags                  []string          `json:"tags" validate:"dive,max=64"`
	CustomFields          map[string]any    `json:"custom_fields"`
	Notes                 string            `json:"notes"`
}

// UpdateOpportunityRequest is a partial edit; nil fields are left unchanged.
// Status is not editable here, closing goes through mark-won/mark-lost.
type UpdateOpportunityRequest struct {
	Title                 *string           `json:"title" validate:"omitempty,max=255"`
	Description           *string           `json:"description"`
	AccountName           *string           `json:"account_name" validate:"omitempty,max=255"`
	Pipeline              *string           `json:"pipeline" validate:"omitempty,oneof=sales customer_success renewal partnership"`
	Stage                 *string           `json:"stage" validate:"omitempty,max=64"`
	Amount                *decimal.Decimal  `json:"amount"`
	Currency              *string           `json:"currency" validate:"omitempty,len=3"`
	ExpectedCloseDays     *int              `json:"expected_close_days" validate:"omitempty,min=1"`
	Priority              *string           `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Type                  *string           `json:"type" validate:"omitempty,oneof=new_business existing_business renewal expansion upsell cross_sell"`
	Source                *string           `json:"source" validate:"omitempty,oneof=inbound outbound referral website social_media email_campaign cold_call trade_show partner other"`
	ContactName           *string           `json:"contact_name" validate:"omitempty,max=255"`
	ContactEmail          *string           `json:"contact_email" validate:"omitempty,email,max=255"`
	ContactPhone          *string           `json:"contact_phone" validate:"omitempty,max=64"`
	DecisionMaker         *string           `json:"decision_maker" validate:"omitempty,max=255"`
	DecisionMakers        []string          `json:"decision_makers" validate:"omitempty,dive,max=255"`
	Competitors           *string           `json:"competitors" validate:"omitempty,max=255"`
	CompetitiveAdvantages *string           `json:"competitive_advantages"`
	CompetitiveWeaknesses *string           `json:"competitive_weaknesses"`
	ExpectedCloseDate     *Date             `json:"expected_close_date"`
	NextSteps             *string           `json:"next_steps"`
	FollowUpDate          *Date             `json:"follow_up_date"`
	UserID                *int64            `json:"user_id" validate:"omitempty,gt=0"`
	TeamMembers           []TeamMemberInput `json:"team_members" validate:"omitempty,dive"`
	Tags                  []string          `json:"tags" validate:"omitempty,dive,max=64"`
	CustomFields          map[string]any    `json:"custom_fields"`
	Notes                 *string           `json:"notes"`
}

// OpportunityListRequest holds list filters, sorting and paging.
type OpportunityListRequest struct {
	Pipeline      string `query:"pipeline" validate:"omitempty,oneof=sales customer_success renewal partnership"`
	Status        string `query:"status" validate:"omitempty,oneof=active won lost paused cancelled"`
	Stage         string `query:"stage" validate:"omitempty,max=64"`
	Priority      string `query:"priority" validate:"omitempty,oneof=low medium high critical"`
	UserID        string `query:"user_id"` // a user id or "unassigned"
	AmountMin     string `query:"amount_min"`
	AmountMax     string `query:"amount_max"`
	DateFrom      *Date  `query:"date_from"`
	DateTo        *Date  `query:"date_to"`
	Search        string `query:"search" validate:"max=255"`
	SortBy        string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at title amount probability expected_close_date stage_order priority"`
	SortDirection string `query:"sort_direction" validate:"omitempty,oneof=asc desc"`
	Page          int    `query:"page" validate:"omitempty,min=1"`
	Limit         int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// MoveStageRequest moves an opportunity to another stage.
type MoveStageRequest struct {
	Stage  string `json:"stage" validate:"required,max=64"`
	UserID *int64 `json:"user_id" validate:"omitempty,gt=0"`
}

// MarkWonRequest closes an opportunity as won.
type MarkWonRequest struct {
	ActualAmount *decimal.Decimal `json:"actual_amount"`
	WonReason    string           `json:"won_reason" validate:"max=1000"`
}

// MarkLostRequest closes an opportunity as lost.
type MarkLostRequest struct {
	LostReason string `json:"lost_reason" validate:"required,max=1000"`
}

// BulkUpdateOpportunitiesRequest applies the same changes to many opportunities.
type BulkUpdateOpportunitiesRequest struct {
	IDs      []int64 `json:"opportunity_ids" validate:"required,min=1,max=500,dive,gt=0"`
	UserID   *int64  `json:"user_id" validate:"omitempty,gt=0"`
	Priority string  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Stage    string  `json:"stage" validate:"omitempty,max=64"`
	Status   string  `json:"status" validate:"omitempty,oneof=active won lost paused cancelled"`
}

// PipelineViewRequest scopes kanban and stats views.
type PipelineViewRequest struct {
	Pipeline string `query:"pipeline" validate:"omitempty,oneof=sales customer_success renewal partnership"`
	UserID   *int64 `query:"user_id" validate:"omitempty,gt=0"`
}
