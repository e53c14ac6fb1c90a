package leads

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/shopspring/decimal"
)

const table = "leads"

var writeColumns = []string{
	"company_id", "user_id", "customer_id", "first_name", "last_name", "email", "phone", "mobile",
	"company_name", "job_title", "website", "description", "status", "source", "industry",
	"employees", "estimated_value", "currency", "priority", "score", "rating", "follow_up_date",
	"notes", "converted_at", "converted_by", "lost_reason", "tags", "created_at", "updated_at",
}

var selectColumns = append([]string{"id"}, writeColumns...)

type store struct {
	db *database.Client
}

func (s *store) selector() *entsql.Selector {
	return s.db.Builder().Select(selectColumns...).From(s.db.Builder().Table(table))
}

func values(l *Lead) ([]any, error) {
	tags, err := database.JSONValue(l.Tags)
	if err != nil {
		return nil, err
	}
	return []any{
		l.CompanyID, l.UserID, l.CustomerID, l.FirstName, l.LastName,
		database.NullString(l.Email), database.NullString(l.Phone), database.NullString(l.Mobile),
		database.NullString(l.CompanyName), database.NullString(l.JobTitle), database.NullString(l.Website),
		database.NullString(l.Description), l.Status, database.NullString(l.Source), database.NullString(l.Industry),
		l.Employees, l.EstimatedValue, l.Currency, l.Priority, l.Score, database.NullString(l.Rating),
		database.NullTime(l.FollowUpDate), database.NullString(l.Notes), database.NullTime(l.ConvertedAt),
		l.ConvertedBy, database.NullString(l.LostReason), tags, l.CreatedAt, l.UpdatedAt,
	}, nil
}

func (s *store) insert(ctx context.Context, q database.Querier, l *Lead) (int64, error) {
	vals, err := values(l)
	if err != nil {
		return 0, err
	}
	id, err := database.InsertReturningID(ctx, q, s.db.Builder().Insert(table).Columns(writeColumns...).Values(vals...))
	if err != nil {
		return 0, fmt.Errorf("failed to create lead: %w", err)
	}
	return id, nil
}

// update writes every column except company_id and created_at.
func (s *store) update(ctx context.Context, q database.Querier, l *Lead) error {
	vals, err := values(l)
	if err != nil {
		return err
	}
	upd := s.db.Builder().Update(table)
	for i, col := range writeColumns {
		if col == "company_id" || col == "created_at" {
			continue
		}
		upd.Set(col, vals[i])
	}
	n, err := database.Exec(ctx, q, upd.Where(entsql.EQ("id", l.ID)))
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("lead")
	}
	return nil
}

func (s *store) delete(ctx context.Context, q database.Querier, id int64) error {
	n, err := database.Exec(ctx, q, s.db.Builder().Delete(table).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("lead")
	}
	return nil
}

func (s *store) get(ctx context.Context, q database.Querier, id int64) (*Lead, error) {
	found, err := s.query(ctx, q, s.selector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.NewNotFoundError("lead")
	}
	return &found[0], nil
}

func (s *store) count(ctx context.Context, q database.Querier, where *entsql.Predicate) (int, error) {
	n, err := database.Count(ctx, q, s.db.Builder().Select(entsql.Count("*")).From(s.db.Builder().Table(table)).Where(where))
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

func (s *store) query(ctx context.Context, q database.Querier, sel *entsql.Selector) ([]Lead, error) {
	query, args := sel.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scan(rows *sql.Rows) (*Lead, error) {
	var (
		l                                        Lead
		userID, customerID, convertedBy          sql.NullInt64
		employees                                sql.NullInt64
		email, phone, mobile, companyName, title sql.NullString
		website, description, source, industry   sql.NullString
		rating, notes, lostReason, tags          sql.NullString
		followUp, convertedAt                    sql.NullTime
		estimated                                decimal.NullDecimal
	)
	err := rows.Scan(&l.ID, &l.CompanyID, &userID, &customerID, &l.FirstName, &l.LastName,
		&email, &phone, &mobile, &companyName, &title, &website, &description, &l.Status,
		&source, &industry, &employees, &estimated, &l.Currency, &l.Priority, &l.Score, &rating,
		&followUp, &notes, &convertedAt, &convertedBy, &lostReason, &tags, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	l.UserID = database.Int64Ptr(userID)
	l.CustomerID = database.Int64Ptr(customerID)
	l.ConvertedBy = database.Int64Ptr(convertedBy)
	l.Employees = database.IntPtr(employees)
	l.Email, l.Phone, l.Mobile = email.String, phone.String, mobile.String
	l.CompanyName, l.JobTitle, l.Website = companyName.String, title.String, website.String
	l.Description, l.Source, l.Industry = description.String, source.String, industry.String
	l.Rating, l.Notes, l.LostReason = rating.String, notes.String, lostReason.String
	l.FollowUpDate = database.TimePtr(followUp)
	l.ConvertedAt = database.TimePtr(convertedAt)
	l.EstimatedValue = estimated
	if err := database.DecodeJSON(tags, &l.Tags); err != nil {
		return nil, err
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return &l, nil
}

// today is the start of the current UTC day, the bound for date columns.
func today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
