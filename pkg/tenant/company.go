package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
)

// Subscription statuses
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
)

// Company is a tenant account.
type Company struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	IsActive           bool       `json:"is_active"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Access outcomes for CheckAccess.
var (
	ErrCompanySuspended = errors.New("company account is suspended")
	ErrTrialExpired     = errors.New("company trial has expired")
)

// CheckAccess reports whether users of the company may work right now.
func (c *Company) CheckAccess(now time.Time) error {
	if !c.IsActive {
		return ErrCompanySuspended
	}
	if c.SubscriptionStatus == SubscriptionTrial && c.TrialEndsAt != nil && c.TrialEndsAt.Before(now) {
		return ErrTrialExpired
	}
	return nil
}

// Service reads company records.
type Service struct {
	db  *database.Client
	now func() time.Time
}

// NewService creates a new tenant service
func NewService(db *database.Client) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var companyColumns = []string{
	"id", "name", "is_active", "subscription_status", "trial_ends_at", "created_at", "updated_at",
}

// Get loads a company by id.
func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	query, args := s.db.Builder().Select(companyColumns...).
		From(s.db.Builder().Table("companies")).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		c        Company
		trialEnd sql.NullTime
	)
	err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.Name, &c.IsActive, &c.SubscriptionStatus, &trialEnd, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("company")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	c.TrialEndsAt = database.TimePtr(trialEnd)
	return &c, nil
}

// Authorize loads the company and checks it is usable right now.
func (s *Service) Authorize(ctx context.Context, companyID int64) (*Company, error) {
	c, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := c.CheckAccess(s.now()); err != nil {
		return c, err
	}
	return c, nil
}

// ListActiveIDs returns the ids of every active company.
func (s *Service) ListActiveIDs(ctx context.Context) ([]int64, error) {
	query, args := s.db.Builder().Select("id").
		From(s.db.Builder().Table("companies")).
		Where(entsql.EQ("is_active", true)).
		OrderBy("id").
		Query()

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a company. trialDays > 0 starts a trial of that length.
func (s *Service) Create(ctx context.Context, name string, trialDays int) (*Company, error) {
	if name == "" {
		return nil, domain.NewFieldValidationError(map[string]string{"name": "is required"})
	}

	now := s.now()
	c := Company{Name: name, IsActive: true, SubscriptionStatus: SubscriptionActive, CreatedAt: now, UpdatedAt: now}
	if trialDays > 0 {
		end := now.AddDate(0, 0, trialDays)
		c.SubscriptionStatus = SubscriptionTrial
		c.TrialEndsAt = &end
	}

	id, err := database.InsertReturningID(ctx, s.db.DB, s.db.Builder().Insert("companies").
		Columns("name", "is_active", "subscription_status", "trial_ends_at", "created_at", "updated_at").
		Values(c.Name, c.IsActive, c.SubscriptionStatus, database.NullTime(c.TrialEndsAt), c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	c.ID = id
	return &c, nil
}

// SetActive suspends or re-activates a company.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	n, err := database.Exec(ctx, s.db.DB, s.db.Builder().Update("companies").
		Set("is_active", active).
		Set("updated_at", s.now()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("company")
	}
	return nil
}
