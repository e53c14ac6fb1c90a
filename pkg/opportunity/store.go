package opportunity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/shopspring/decimal"
)

const table = "opportunities"

// Writable columns in insert order. company_id and created_at are only
// written on insert.
var writeColumns = []string{
	"company_id", "user_id", "lead_id", "title", "description", "account_name",
	"pipeline", "stage", "stage_order", "amount", "currency", "probability",
	"weighted_amount", "expected_close_days", "status", "priority", "type", "source",
	"contact_name", "contact_email", "contact_phone", "decision_maker", "decision_makers",
	"competitors", "competitive_advantages", "competitive_weaknesses",
	"expected_close_date", "next_steps", "follow_up_date", "team_members",
	"created_by", "won_by", "lost_by", "won_reason", "lost_reason", "actual_amount",
	"closed_date", "sales_cycle_days", "custom_fields", "tags", "notes",
	"created_at", "updated_at",
}

var selectColumns = append([]string{"id"}, append(writeColumns, "deleted_at")...)

type store struct {
	db *database.Client
}

func (s *store) builder() *entsql.DialectBuilder {
	return s.db.Builder()
}

func (s *store) selector() *entsql.Selector {
	return s.builder().Select(selectColumns...).From(s.builder().Table(table))
}

// values renders o in writeColumns order.
func values(o *Opportunity) ([]any, error) {
	decisionMakers, err := database.JSONValue(o.DecisionMakers)
	if err != nil {
		return nil, err
	}
	team, err := database.JSONValue(o.TeamMembers)
	if err != nil {
		return nil, err
	}
	custom, err := database.JSONValue(o.CustomFields)
	if err != nil {
		return nil, err
	}
	tags, err := database.JSONValue(o.Tags)
	if err != nil {
		return nil, err
	}

	return []any{
		o.CompanyID, o.UserID, o.LeadID, o.Title, database.NullString(o.Description), database.NullString(o.AccountName),
		string(o.Pipeline), string(o.Stage), o.StageOrder, o.Amount, o.Currency, o.Probability,
		o.WeightedAmount, o.ExpectedCloseDays, string(o.Status), string(o.Priority), database.NullString(string(o.Type)), database.NullString(string(o.Source)),
		database.NullString(o.ContactName), database.NullString(o.ContactEmail), database.NullString(o.ContactPhone), database.NullString(o.DecisionMaker), decisionMakers,
		database.NullString(o.Competitors), database.NullString(o.CompetitiveAdvantages), database.NullString(o.CompetitiveWeaknesses),
		database.NullTime(o.ExpectedCloseDate), database.NullString(o.NextSteps), database.NullTime(o.FollowUpDate), team,
		o.CreatedBy, o.WonBy, o.LostBy, database.NullString(o.WonReason), database.NullString(o.LostReason), o.ActualAmount,
		database.NullTime(o.ClosedDate), o.SalesCycleDays, custom, tags, database.NullString(o.Notes),
		o.CreatedAt, o.UpdatedAt,
	}, nil
}

func (s *store) insert(ctx context.Context, q database.Querier, o *Opportunity) (int64, error) {
	vals, err := values(o)
	if err != nil {
		return 0, err
	}
	id, err := database.InsertReturningID(ctx, q, s.builder().Insert(table).Columns(writeColumns...).Values(vals...))
	if err != nil {
		return 0, fmt.Errorf("failed to insert opportunity: %w", err)
	}
	return id, nil
}

// update writes every mutable column of o.
func (s *store) update(ctx context.Context, q database.Querier, o *Opportunity) error {
	vals, err := values(o)
	if err != nil {
		return err
	}

	upd := s.builder().Update(table)
	for i, col := range writeColumns {
		if col == "company_id" || col == "created_at" {
			continue
		}
		upd.Set(col, vals[i])
	}
	upd.Where(entsql.And(entsql.EQ("id", o.ID), entsql.IsNull("deleted_at")))

	n, err := database.Exec(ctx, q, upd)
	if err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("opportunity")
	}
	return nil
}

func (s *store) softDelete(ctx context.Context, q database.Querier, id int64, now time.Time) error {
	n, err := database.Exec(ctx, q, s.builder().Update(table).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("deleted_at"))))
	if err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("opportunity")
	}
	return nil
}

// get loads a live opportunity by id regardless of company; callers check tenancy.
func (s *store) get(ctx context.Context, q database.Querier, id int64) (*Opportunity, error) {
	found, err := s.query(ctx, q, s.selector().Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("deleted_at"))))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.NewNotFoundError("opportunity")
	}
	return &found[0], nil
}

// byIDs loads live opportunities by id regardless of company.
func (s *store) byIDs(ctx context.Context, q database.Querier, ids []int64) ([]Opportunity, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.query(ctx, q, s.selector().
		Where(entsql.And(entsql.In("id", args...), entsql.IsNull("deleted_at"))).
		OrderBy("id"))
}

// forPipeline loads a company's live opportunities of one pipeline, newest first.
func (s *store) forPipeline(ctx context.Context, q database.Querier, companyID int64, p pipeline.Pipeline) ([]Opportunity, error) {
	return s.query(ctx, q, s.selector().
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.EQ("pipeline", string(p)),
			entsql.IsNull("deleted_at"),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")))
}

// openForCompany loads a company's live active opportunities.
func (s *store) openForCompany(ctx context.Context, q database.Querier, companyID int64) ([]Opportunity, error) {
	return s.query(ctx, q, s.selector().
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.EQ("status", string(pipeline.StatusActive)),
			entsql.IsNull("deleted_at"),
		)).
		OrderBy("id"))
}

func (s *store) count(ctx context.Context, q database.Querier, where *entsql.Predicate) (int, error) {
	sel := s.builder().Select(entsql.Count("*")).From(s.builder().Table(table)).Where(where)
	n, err := database.Count(ctx, q, sel)
	if err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

func (s *store) query(ctx context.Context, q database.Querier, sel *entsql.Selector) ([]Opportunity, error) {
	query, args := sel.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var out []Opportunity
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scan(rows *sql.Rows) (*Opportunity, error) {
	var (
		o                                                      Opportunity
		userID, leadID, createdBy, wonBy, lostBy               sql.NullInt64
		expectedCloseDays, salesCycleDays                      sql.NullInt64
		description, accountName, typ, source                  sql.NullString
		contactName, contactEmail, contactPhone, decisionMaker sql.NullString
		competitors, advantages, weaknesses, nextSteps         sql.NullString
		wonReason, lostReason, notes                           sql.NullString
		decisionMakers, teamMembers, customFields, tags        sql.NullString
		pipelineName, stage, status, priority                  string
		expectedCloseDate, followUpDate, closedDate, deletedAt sql.NullTime
	)

	err := rows.Scan(
		&o.ID,
		&o.CompanyID, &userID, &leadID, &o.Title, &description, &accountName,
		&pipelineName, &stage, &o.StageOrder, &o.Amount, &o.Currency, &o.Probability,
		&o.WeightedAmount, &expectedCloseDays, &status, &priority, &typ, &source,
		&contactName, &contactEmail, &contactPhone, &decisionMaker, &decisionMakers,
		&competitors, &advantages, &weaknesses,
		&expectedCloseDate, &nextSteps, &followUpDate, &teamMembers,
		&createdBy, &wonBy, &lostBy, &wonReason, &lostReason, &o.ActualAmount,
		&closedDate, &salesCycleDays, &customFields, &tags, &notes,
		&o.CreatedAt, &o.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	o.UserID = database.Int64Ptr(userID)
	o.LeadID = database.Int64Ptr(leadID)
	o.CreatedBy = database.Int64Ptr(createdBy)
	o.WonBy = database.Int64Ptr(wonBy)
	o.LostBy = database.Int64Ptr(lostBy)
	o.ExpectedCloseDays = database.IntPtr(expectedCloseDays)
	o.SalesCycleDays = database.IntPtr(salesCycleDays)

	o.Description = description.String
	o.AccountName = accountName.String
	o.Type = pipeline.DealType(typ.String)
	o.Source = pipeline.Source(source.String)
	o.ContactName = contactName.String
	o.ContactEmail = contactEmail.String
	o.ContactPhone = contactPhone.String
	o.DecisionMaker = decisionMaker.String
	o.Competitors = competitors.String
	o.CompetitiveAdvantages = advantages.String
	o.CompetitiveWeaknesses = weaknesses.String
	o.NextSteps = nextSteps.String
	o.WonReason = wonReason.String
	o.LostReason = lostReason.String
	o.Notes = notes.String

	o.Pipeline = pipeline.Pipeline(pipelineName)
	o.Stage = pipeline.Stage(stage)
	o.Status = pipeline.Status(status)
	o.Priority = pipeline.Priority(priority)

	o.ExpectedCloseDate = database.TimePtr(expectedCloseDate)
	o.FollowUpDate = database.TimePtr(followUpDate)
	o.ClosedDate = database.TimePtr(closedDate)
	o.DeletedAt = database.TimePtr(deletedAt)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()

	for _, col := range []struct {
		src sql.NullString
		dst any
	}{
		{decisionMakers, &o.DecisionMakers},
		{teamMembers, &o.TeamMembers},
		{customFields, &o.CustomFields},
		{tags, &o.Tags},
	} {
		if err := database.DecodeJSON(col.src, col.dst); err != nil {
			return nil, err
		}
	}

	return &o, nil
}

// sumAmounts adds up the valid values.
func sumAmounts(vals ...decimal.NullDecimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vals {
		if v.Valid {
			total = total.Add(v.Decimal)
		}
	}
	return total
}
