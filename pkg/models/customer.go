package models

// CreateCustomerRequest represents a new customer
type CreateCustomerRequest struct {
	DisplayName  string `json:"display_name" validate:"required,max=255"`
	CustomerType string `json:"customer_type" validate:"omitempty,oneof=company individual"`
	FirstName    string `json:"first_name" validate:"max=255"`
	LastName     string `json:"last_name" validate:"max=255"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	Phone        string `json:"phone" validate:"max=64"`
	Website      string `json:"website" validate:"omitempty,url,max=255"`
	Industry     string `json:"industry" validate:"max=255"`
	Description  string `json:"description" validate:"max=5000"`
}

// CreateContactRequest adds a contact person to a customer.
type CreateContactRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=255"`
	LastName   string `json:"last_name" validate:"required,max=255"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	Phone      string `json:"phone" validate:"max=64"`
	Mobile     string `json:"mobile" validate:"max=64"`
	JobTitle   string `json:"job_title" validate:"max=255"`
	Department string `json:"department" validate:"max=255"`
	IsPrimary  bool   `json:"is_primary"`
	IsActive   *bool  `json:"is_active"`
	Notes      string `json:"notes" validate:"max=5000"`
}
