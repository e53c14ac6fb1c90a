package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var columns = []string{
	"id", "company_id", "user_id", "subject_type", "subject_id",
	"type", "title", "description", "metadata", "created_at",
}

// Service stores and reads activities.
type Service struct {
	db  *database.Client
	now func() time.Time
}

// NewService creates a new activity service
func NewService(db *database.Client) *Service {
	return &Service{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an activity through q.
func (s *Service) Record(ctx context.Context, q database.Querier, e Entry) error {
	if e.CompanyID == 0 {
		return fmt.Errorf("activity without company")
	}
	if !e.Subject.Kind.Valid() || e.Subject.ID == 0 {
		return fmt.Errorf("invalid activity subject %q/%d", e.Subject.Kind, e.Subject.ID)
	}
	if e.Type == "" {
		return fmt.Errorf("activity type is required")
	}

	meta, err := database.JSONValue(e.Metadata)
	if err != nil {
		return err
	}

	title := e.Title
	if title == "" {
		title = e.Type
	}

	stmt := s.db.Builder().Insert("activities").
		Columns("company_id", "user_id", "subject_type", "subject_id", "type", "title", "description", "metadata", "created_at").
		Values(e.CompanyID, e.UserID, string(e.Subject.Kind), e.Subject.ID, e.Type, title, database.NullString(e.Description), meta, s.now())

	if _, err := database.InsertReturningID(ctx, q, stmt); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListForSubject returns the newest activities of one record within a company.
func (s *Service) ListForSubject(ctx context.Context, companyID int64, subject Subject, limit int) ([]Activity, error) {
	if !subject.Kind.Valid() {
		return nil, domain.NewFieldValidationError(map[string]string{"subject_type": "unknown subject type"})
	}

	sel := s.db.Builder().Select(columns...).
		From(s.db.Builder().Table("activities")).
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.EQ("subject_type", string(subject.Kind)),
			entsql.EQ("subject_id", subject.ID),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(clampLimit(limit))

	return s.query(ctx, sel)
}

// ListRecent returns a company's activities created at or after since, newest first.
func (s *Service) ListRecent(ctx context.Context, companyID int64, since time.Time, limit int) ([]Activity, error) {
	sel := s.db.Builder().Select(columns...).
		From(s.db.Builder().Table("activities")).
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.GTE("created_at", since.UTC()),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(clampLimit(limit))

	return s.query(ctx, sel)
}

func (s *Service) query(ctx context.Context, stmt database.Statement) ([]Activity, error) {
	query, args := stmt.Query()
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			a           Activity
			userID      sql.NullInt64
			subjectType string
			description sql.NullString
			metadata    sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.CompanyID, &userID, &subjectType, &a.Subject.ID,
			&a.Type, &a.Title, &description, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.UserID = database.Int64Ptr(userID)
		a.Subject.Kind = SubjectKind(subjectType)
		a.Description = description.String
		if err := database.DecodeJSON(metadata, &a.Metadata); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
