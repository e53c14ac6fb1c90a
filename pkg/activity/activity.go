package activity

import (
	"context"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/database"
)

// SubjectKind tags the kind of record an activity is about.
type SubjectKind string

const (
	SubjectOpportunity     SubjectKind = "opportunity"
	SubjectLead            SubjectKind = "lead"
	SubjectCustomer        SubjectKind = "customer"
	SubjectCustomerContact SubjectKind = "customer_contact"
)

// Valid reports whether k is a known subject kind.
func (k SubjectKind) Valid() bool {
	switch k {
	case SubjectOpportunity, SubjectLead, SubjectCustomer, SubjectCustomerContact:
		return true
	}
	return false
}

// Subject references the record an activity is about.
type Subject struct {
	Kind SubjectKind `json:"type"`
	ID   int64       `json:"id"`
}

// Opportunity returns the subject reference of an opportunity.
func Opportunity(id int64) Subject { return Subject{Kind: SubjectOpportunity, ID: id} }

// Lead returns the subject reference of a lead.
func Lead(id int64) Subject { return Subject{Kind: SubjectLead, ID: id} }

// Customer returns the subject reference of a customer.
func Customer(id int64) Subject { return Subject{Kind: SubjectCustomer, ID: id} }

// Contact returns the subject reference of a customer contact.
func Contact(id int64) Subject { return Subject{Kind: SubjectCustomerContact, ID: id} }

// Activity types
const (
	TypeCreated            = "created"
	TypeUpdated            = "updated"
	TypeDeleted            = "deleted"
	TypeStageChanged       = "stage_changed"
	TypeWon                = "won"
	TypeLost               = "lost"
	TypeProbabilityUpdated = "probability_updated"

	TypeLeadCreated       = "lead_created"
	TypeLeadStatusChanged = "lead_status_changed"
	TypeLeadConverted     = "lead_converted"

	TypeCustomerCreated = "customer_created"

	TypeContactAdded       = "contact_added"
	TypePrimarySet         = "primary_set"
	TypePrimaryRemoved     = "primary_removed"
	TypeContactActivated   = "contact_activated"
	TypeContactDeactivated = "contact_deactivated"
)

// Entry is an audit record to append.
type Entry struct {
	CompanyID   int64
	UserID      *int64
	Subject     Subject
	Type        string
	Title       string
	Description string
	Metadata    map[string]any
}

// Activity is a stored audit record.
type Activity struct {
	ID          int64          `json:"id"`
	CompanyID   int64          `json:"company_id"`
	UserID      *int64         `json:"user_id"`
	Subject     Subject        `json:"subject"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder appends audit records. Implementations write through q so the
// record commits or rolls back with the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, q database.Querier, e Entry) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, q database.Querier, e Entry) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, q database.Querier, e Entry) error {
	return f(ctx, q, e)
}
