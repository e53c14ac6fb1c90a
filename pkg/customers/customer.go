// Package customers holds converted customers and their contact people.
// A customer has at most one primary contact at a time.
package customers

import (
	"strings"
	"time"
)

// Customer types
const (
	TypeCompany    = "company"
	TypeIndividual = "individual"
)

// Customer is an account won from a lead or created directly.
type Customer struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	CreatedBy    *int64    `json:"created_by"`
	DisplayName  string    `json:"display_name"`
	CustomerType string    `json:"customer_type"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Website      string    `json:"website,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Contact is a person at a customer.
type Contact struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Mobile     string    `json:"mobile,omitempty"`
	JobTitle   string    `json:"job_title,omitempty"`
	Department string    `json:"department,omitempty"`
	IsPrimary  bool      `json:"is_primary"`
	IsActive   bool      `json:"is_active"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Details is a customer with its contacts, primary first.
type Details struct {
	*Customer
	Contacts []Contact `json:"contacts"`
}

// NewCustomer is the input of a customer insert.
type NewCustomer struct {
	DisplayName  string
	CustomerType string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Website      string
	Industry     string
	Description  string
}

// NewContact is the input of a contact insert.
type NewContact struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Mobile     string
	JobTitle   string
	Department string
	IsPrimary  bool
	IsActive   bool
	Notes      string
}
