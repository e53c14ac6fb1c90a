package customers

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

var customerColumns = []string{
	"id", "company_id", "created_by", "display_name", "customer_type", "first_name", "last_name",
	"email", "phone", "website", "industry", "description", "is_active", "created_at", "updated_at",
}

var contactColumns = []string{
	"id", "customer_id", "first_name", "last_name", "email", "phone", "mobile",
	"job_title", "department", "is_primary", "is_active", "notes", "created_at", "updated_at",
}

type store struct {
	db *database.Client
}

func (s *store) insertCustomer(ctx context.Context, q database.Querier, c *Customer) (int64, error) {
	id, err := database.InsertReturningID(ctx, q, s.db.Builder().Insert("customers").
		Columns(customerColumns[1:]...).
		Values(c.CompanyID, c.CreatedBy, c.DisplayName, c.CustomerType,
			database.NullString(c.FirstName), database.NullString(c.LastName),
			database.NullString(c.Email), database.NullString(c.Phone),
			database.NullString(c.Website), database.NullString(c.Industry),
			database.NullString(c.Description), c.IsActive, c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create customer: %w", err)
	}
	return id, nil
}

func (s *store) insertContact(ctx context.Context, q database.Querier, c *Contact) (int64, error) {
	id, err := database.InsertReturningID(ctx, q, s.db.Builder().Insert("customer_contacts").
		Columns(contactColumns[1:]...).
		Values(c.CustomerID, c.FirstName, c.LastName,
			database.NullString(c.Email), database.NullString(c.Phone), database.NullString(c.Mobile),
			database.NullString(c.JobTitle), database.NullString(c.Department),
			c.IsPrimary, c.IsActive, database.NullString(c.Notes), c.CreatedAt, c.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create contact: %w", err)
	}
	return id, nil
}

func (s *store) getCustomer(ctx context.Context, q database.Querier, id int64) (*Customer, error) {
	query, args := s.db.Builder().Select(customerColumns...).
		From(s.db.Builder().Table("customers")).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		c                                          Customer
		createdBy                                  sql.NullInt64
		first, last, email, phone, website, indust sql.NullString
		description                                sql.NullString
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.CompanyID, &createdBy, &c.DisplayName,
		&c.CustomerType, &first, &last, &email, &phone, &website, &indust, &description,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("customer")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	c.CreatedBy = database.Int64Ptr(createdBy)
	c.FirstName, c.LastName, c.Email = first.String, last.String, email.String
	c.Phone, c.Website, c.Industry = phone.String, website.String, indust.String
	c.Description = description.String
	return &c, nil
}

func (s *store) contactSelector() *entsql.Selector {
	return s.db.Builder().Select(contactColumns...).From(s.db.Builder().Table("customer_contacts"))
}

func (s *store) getContact(ctx context.Context, q database.Querier, id int64) (*Contact, error) {
	found, err := s.queryContacts(ctx, q, s.contactSelector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.NewNotFoundError("contact")
	}
	return &found[0], nil
}

// contactsOf lists a customer's contacts, primary first then by name.
func (s *store) contactsOf(ctx context.Context, q database.Querier, customerID int64) ([]Contact, error) {
	return s.queryContacts(ctx, q, s.contactSelector().
		Where(entsql.EQ("customer_id", customerID)).
		OrderBy(entsql.Desc("is_primary"), "last_name", "first_name", "id"))
}

// primariesOf lists the current primary contacts of a customer other than exceptID.
func (s *store) primariesOf(ctx context.Context, q database.Querier, customerID, exceptID int64) ([]Contact, error) {
	return s.queryContacts(ctx, q, s.contactSelector().
		Where(entsql.And(
			entsql.EQ("customer_id", customerID),
			entsql.EQ("is_primary", true),
			entsql.NEQ("id", exceptID),
		)).
		OrderBy("id"))
}

func (s *store) setContactFlag(ctx context.Context, q database.Querier, id int64, column string, value bool, now time.Time) error {
	n, err := database.Exec(ctx, q, s.db.Builder().Update("customer_contacts").
		Set(column, value).
		Set("updated_at", now).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("contact")
	}
	return nil
}

func (s *store) queryContacts(ctx context.Context, q database.Querier, sel *entsql.Selector) ([]Contact, error) {
	query, args := sel.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var (
			c                                  Contact
			email, phone, mobile, title, depts sql.NullString
			notes                              sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.FirstName, &c.LastName, &email, &phone, &mobile,
			&title, &depts, &c.IsPrimary, &c.IsActive, &notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.Email, c.Phone, c.Mobile = email.String, phone.String, mobile.String
		c.JobTitle, c.Department, c.Notes = title.String, depts.String, notes.String
		out = append(out, c)
	}
	return out, rows.Err()
}
