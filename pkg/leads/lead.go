// Package leads manages prospective customers before they become
// opportunities or customers: scoring, status audit and conversion.
package leads

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lead statuses
const (
	StatusNew                = "new"
	StatusContacted          = "contacted"
	StatusQualified          = "qualified"
	StatusProposal           = "proposal"
	StatusNegotiation        = "negotiation"
	StatusConverted          = "converted"
	StatusLost               = "lost"
	StatusRecycled           = "recycled"
	StatusOpportunityCreated = "opportunity_created"
)

// Ratings
const (
	RatingHot  = "hot"
	RatingWarm = "warm"
	RatingCold = "cold"
)

// Lead is a prospective customer.
type Lead struct {
	ID             int64               `json:"id"`
	CompanyID      int64               `json:"company_id"`
	UserID         *int64              `json:"user_id"`
	CustomerID     *int64              `json:"customer_id"`
	FirstName      string              `json:"first_name"`
	LastName       string              `json:"last_name"`
	Email          string              `json:"email,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	Mobile         string              `json:"mobile,omitempty"`
	CompanyName    string              `json:"company_name,omitempty"`
	JobTitle       string              `json:"job_title,omitempty"`
	Website        string              `json:"website,omitempty"`
	Description    string              `json:"description,omitempty"`
	Status         string              `json:"status"`
	Source         string              `json:"source,omitempty"`
	Industry       string              `json:"industry,omitempty"`
	Employees      *int                `json:"employees"`
	EstimatedValue decimal.NullDecimal `json:"estimated_value"`
	Currency       string              `json:"currency"`
	Priority       int                 `json:"priority"`
	Score          int                 `json:"score"`
	Rating         string              `json:"rating,omitempty"`
	FollowUpDate   *time.Time          `json:"follow_up_date"`
	Notes          string              `json:"notes,omitempty"`
	ConvertedAt    *time.Time          `json:"converted_at"`
	ConvertedBy    *int64              `json:"converted_by"`
	LostReason     string              `json:"lost_reason,omitempty"`
	Tags           []string            `json:"tags"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// IsConverted reports whether the lead already became a customer.
func (l *Lead) IsConverted() bool {
	return l.Status == StatusConverted || l.CustomerID != nil
}

// IsOpen reports whether the lead is still being worked.
func (l *Lead) IsOpen() bool {
	return !l.IsConverted() && l.Status != StatusLost
}

// Summary is the short form of a lead shown next to its opportunities.
type Summary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Status      string `json:"status"`
}

// Summarize returns the short form of l.
func (l *Lead) Summarize() *Summary {
	return &Summary{
		ID:          l.ID,
		Name:        l.FullName(),
		CompanyName: l.CompanyName,
		Email:       l.Email,
		Phone:       l.Phone,
		Status:      l.Status,
	}
}
