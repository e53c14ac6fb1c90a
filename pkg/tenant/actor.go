// Package tenant holds company records, the acting-user context and the
// role/permission table every tenant-scoped operation is checked against.
package tenant

import "github.com/jordanlanch/dealpipe/pkg/domain"

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	UserID    int64
	CompanyID int64
	Role      Role
}

// UserRef returns the actor's id as a nullable column value.
func (a Actor) UserRef() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Owns rejects records of another company. Cross-tenant access is an
// authorization failure, never a missing row.
func (a Actor) Owns(resource string, companyID int64) error {
	if a.CompanyID == 0 || companyID != a.CompanyID {
		return domain.NewForbiddenError(resource + " belongs to another company")
	}
	return nil
}

// Require fails with FORBIDDEN unless the actor's role grants p.
func (a Actor) Require(p Permission) error {
	if !a.Role.Can(p) {
		return domain.NewForbiddenError("missing permission " + string(p))
	}
	return nil
}
