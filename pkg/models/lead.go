package models

import "github.com/shopspring/decimal"

// CreateLeadRequest represents a new lead
type CreateLeadRequest struct {
	FirstName      string           `json:"first_name" validate:"required,max=255"`
	LastName       string           `json:"last_name" validate:"required,max=255"`
	Email          string           `json:"email" validate:"omitempty,email,max=255"`
	Phone          string           `json:"phone" validate:"max=64"`
	Mobile         string           `json:"mobile" validate:"max=64"`
	CompanyName    string           `json:"company_name" validate:"max=255"`
	JobTitle       string           `json:"job_title" validate:"max=255"`
	Website        string           `json:"website" validate:"omitempty,url,max=255"`
	Description    string           `json:"description" validate:"max=5000"`
	Status         string           `json:"status" validate:"omitempty,oneof=new contacted qualified proposal negotiation"`
	Source         string           `json:"source" validate:"max=64"`
	Industry       string           `json:"industry" validate:"max=255"`
	Employees      *int             `json:"employees" validate:"omitempty,min=1"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Currency       string           `json:"currency" validate:"omitempty,len=3"`
	Priority       int              `json:"priority" validate:"omitempty,min=1,max=5"`
	FollowUpDate   *Date            `json:"follow_up_date"`
	Notes          string           `json:"notes" validate:"max=5000"`
	UserID         *int64           `json:"user_id" validate:"omitempty,gt=0"`
	Tags           []string         `json:"tags" validate:"dive,max=64"`
}

// UpdateLeadRequest is a partial edit; nil fields are left unchanged.
// Moving a lead to lost requires a lost_reason.
type UpdateLeadRequest struct {
	FirstName      *string          `json:"first_name" validate:"omitempty,max=255"`
	LastName       *string          `json:"last_name" validate:"omitempty,max=255"`
	Email          *string          `json:"email" validate:"omitempty,email,max=255"`
	Phone          *string          `json:"phone" validate:"omitempty,max=64"`
	Mobile         *string          `json:"mobile" validate:"omitempty,max=64"`
	CompanyName    *string          `json:"company_name" validate:"omitempty,max=255"`
	JobTitle       *string          `json:"job_title" validate:"omitempty,max=255"`
	Website        *string          `json:"website" validate:"omitempty,url,max=255"`
	Description    *string          `json:"description" validate:"omitempty,max=5000"`
	Status         *string          `json:"status" validate:"omitempty,oneof=new contacted qualified proposal negotiation lost recycled opportunity_created"`
	Source         *string          `json:"source" validate:"omitempty,max=64"`
	Industry       *string          `json:"industry" validate:"omitempty,max=255"`
	Employees      *int             `json:"employees" validate:"omitempty,min=1"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Currency       *string          `json:"currency" validate:"omitempty,len=3"`
	Priority       *int             `json:"priority" validate:"omitempty,min=1,max=5"`
	FollowUpDate   *Date            `json:"follow_up_date"`
	Notes          *string          `json:"notes" validate:"omitempty,max=5000"`
	LostReason     *string          `json:"lost_reason" validate:"omitempty,max=255"`
	UserID         *int64           `json:"user_id" validate:"omitempty,gt=0"`
	Tags           []string         `json:"tags" validate:"omitempty,dive,max=64"`
}

// LeadListRequest holds lead list filters and paging.
type LeadListRequest struct {
	Search          string `query:"search" validate:"max=255"`
	Status          string `query:"status" validate:"omitempty,oneof=new contacted qualified proposal negotiation converted lost recycled opportunity_created"`
	Rating          string `query:"rating" validate:"omitempty,oneof=hot warm cold"`
	UserID          *int64 `query:"user_id" validate:"omitempty,gt=0"`
	NeedingFollowUp bool   `query:"needing_follow_up"`
	Page            int    `query:"page" validate:"omitempty,min=1"`
	Limit           int    `query:"limit" validate:"omitempty,min=1,max=100"`
}
