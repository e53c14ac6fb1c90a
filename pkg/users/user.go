// Package users is the read-mostly user directory: display names, emails and
// roles of the people acting inside a company.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/validation"
)

// User is a directory entry.
type User struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      tenant.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
}

// Directory resolves users of a company.
type Directory interface {
	Get(ctx context.Context, companyID, id int64) (*User, error)
	Lookup(ctx context.Context, companyID int64, ids ...int64) (map[int64]User, error)
}

var columns = []string{"id", "company_id", "name", "email", "role", "is_active"}

// Service reads and writes users.
type Service struct {
	db  *database.Client
	now func() time.Time
}

// NewService creates a new user service
func NewService(db *database.Client) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateUserRequest represents a new directory entry
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=company-owner admin manager sales-rep employee read-only"`
}

// Create adds a user to a company.
func (s *Service) Create(ctx context.Context, companyID int64, req CreateUserRequest) (*User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := s.now()
	id, err := database.InsertReturningID(ctx, s.db.DB, s.db.Builder().Insert("users").
		Columns("company_id", "name", "email", "role", "is_active", "created_at", "updated_at").
		Values(companyID, req.Name, email, req.Role, true, now, now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewConflictError("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &User{ID: id, CompanyID: companyID, Name: req.Name, Email: email, Role: tenant.Role(req.Role), IsActive: true}, nil
}

// Get returns one user of the company. A user of another company is FORBIDDEN.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*User, error) {
	found, err := s.query(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.NewNotFoundError("user")
	}
	if found[0].CompanyID != companyID {
		return nil, domain.NewForbiddenError("user belongs to another company")
	}
	return &found[0], nil
}

// Lookup returns the users of the company among ids. Ids that are unknown or
// belong to another company are simply absent from the result.
func (s *Service) Lookup(ctx context.Context, companyID int64, ids ...int64) (map[int64]User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return map[int64]User{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	found, err := s.query(ctx, entsql.And(entsql.EQ("company_id", companyID), entsql.In("id", args...)))
	if err != nil {
		return nil, err
	}

	out := make(map[int64]User, len(found))
	for _, u := range found {
		out[u.ID] = u
	}
	return out, nil
}

// ListByCompany returns every user of a company ordered by name.
func (s *Service) ListByCompany(ctx context.Context, companyID int64) ([]User, error) {
	return s.query(ctx, entsql.EQ("company_id", companyID), "name", "id")
}

func (s *Service) query(ctx context.Context, where *entsql.Predicate, orderBy ...string) ([]User, error) {
	sel := s.db.Builder().Select(columns...).
		From(s.db.Builder().Table("users")).
		Where(where)
	if len(orderBy) > 0 {
		sel.OrderBy(orderBy...)
	}

	query, args := sel.Query()
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u    User
			role string
		)
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = tenant.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
