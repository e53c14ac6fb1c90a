package leads

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/customers"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/jordanlanch/dealpipe/pkg/validation"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 15
	historyLimit    = 50
)

var maxEstimatedValue = decimal.RequireFromString("999999999.99")

// ActivityLog records and reads audit entries.
type ActivityLog interface {
	activity.Recorder
	ListForSubject(ctx context.Context, companyID int64, subject activity.Subject, limit int) ([]activity.Activity, error)
}

// CustomerWriter creates the customer and contact of a converted lead
// inside the conversion transaction.
type CustomerWriter interface {
	CreateInTx(ctx context.Context, q database.Querier, actor tenant.Actor, in customers.NewCustomer) (*customers.Customer, error)
	AddContactInTx(ctx context.Context, q database.Querier, actor tenant.Actor, c *customers.Customer, in customers.NewContact) (*customers.Contact, error)
}

// Deps are the collaborators of the Service.
type Deps struct {
	DB         *database.Client
	Activities ActivityLog
	Users      users.Directory
	Customers  CustomerWriter
	Logger     logger.Logger
}

// Service handles lead business logic
type Service struct {
	db         *database.Client
	store      *store
	activities ActivityLog
	users      users.Directory
	customers  CustomerWriter
	log        logger.Logger
	now        func() time.Time
}

// NewService creates a new lead service
func NewService(d Deps) *Service {
	s := &Service{
		db:         d.DB,
		store:      &store{db: d.DB},
		activities: d.Activities,
		users:      d.Users,
		customers:  d.Customers,
		log:        d.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Details is a lead with its owner and recent history.
type Details struct {
	*Lead
	Owner      *users.User         `json:"owner,omitempty"`
	Activities []activity.Activity `json:"activities"`
}

// Conversion is the outcome of converting a lead.
type Conversion struct {
	Lead     *Lead               `json:"lead"`
	Customer *customers.Customer `json:"customer"`
	Contact  *customers.Contact  `json:"contact,omitempty"`
}

func (s *Service) load(ctx context.Context, actor tenant.Actor, id int64) (*Lead, error) {
	l, err := s.store.get(ctx, s.db.DB, id)
	if err != nil {
		return nil, err
	}
	if err := actor.Owns("lead", l.CompanyID); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) checkOwner(ctx context.Context, companyID, userID int64, fields map[string]string) error {
	found, err := s.users.Lookup(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if _, ok := found[userID]; !ok {
		fields["user_id"] = "must be a user of your company"
	}
	return nil
}

func checkValue(v *decimal.Decimal, fields map[string]string) {
	if v == nil {
		return
	}
	if v.IsNegative() {
		fields["estimated_value"] = "must be greater than or equal to 0"
	} else if v.GreaterThan(maxEstimatedValue) {
		fields["estimated_value"] = "must be at most 999999999.99"
	}
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

// Create validates, scores and stores a new lead.
func (s *Service) Create(ctx context.Context, actor tenant.Actor, req models.CreateLeadRequest) (*Lead, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]string{}
	checkValue(req.EstimatedValue, fields)
	if req.FollowUpDate != nil && req.FollowUpDate.Time.Before(today(now)) {
		fields["follow_up_date"] = "must not be in the past"
	}
	owner := actor.UserRef()
	if req.UserID != nil {
		owner = req.UserID
		if err := s.checkOwner(ctx, actor.CompanyID, *req.UserID, fields); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}

	l := Lead{
		CompanyID:      actor.CompanyID,
		UserID:         owner,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.Phone,
		Mobile:         req.Mobile,
		CompanyName:    req.CompanyName,
		JobTitle:       req.JobTitle,
		Website:        req.Website,
		Description:    req.Description,
		Status:         req.Status,
		Source:         req.Source,
		Industry:       req.Industry,
		Employees:      req.Employees,
		EstimatedValue: nullable(req.EstimatedValue),
		Currency:       strings.ToUpper(req.Currency),
		Priority:       req.Priority,
		FollowUpDate:   req.FollowUpDate.TimePtr(),
		Notes:          req.Notes,
		Tags:           req.Tags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	if l.Currency == "" {
		l.Currency = "USD"
	}
	if l.Priority == 0 {
		l.Priority = 1
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	rescore(&l)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.store.insert(ctx, tx, &l)
		if err != nil {
			return err
		}
		l.ID = id

		from := l.CompanyName
		if from == "" {
			from = "individual"
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   l.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Lead(l.ID),
			Type:        activity.TypeLeadCreated,
			Title:       "Lead Created: " + l.FullName(),
			Description: fmt.Sprintf("New lead %s from %s was added", l.FullName(), from),
			Metadata: map[string]any{
				"lead_name":    l.FullName(),
				"company_name": l.CompanyName,
				"email":        l.Email,
				"phone":        l.Phone,
				"source":       l.Source,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Get returns a lead of the actor's company with its owner and history.
func (s *Service) Get(ctx context.Context, actor tenant.Actor, id int64) (*Details, error) {
	l, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := &Details{Lead: l}

	if l.UserID != nil {
		owner, err := s.users.Get(ctx, l.CompanyID, *l.UserID)
		switch {
		case err == nil:
			d.Owner = owner
		case domain.IsNotFound(err):
		default:
			return nil, err
		}
	}

	d.Activities, err = s.activities.ListForSubject(ctx, l.CompanyID, activity.Lead(l.ID), historyLimit)
	if err != nil {
		return nil, err
	}
	if d.Activities == nil {
		d.Activities = []activity.Activity{}
	}
	return d, nil
}

// Summary returns the short form of a lead of companyID.
func (s *Service) Summary(ctx context.Context, companyID, leadID int64) (*Summary, error) {
	l, err := s.load(ctx, tenant.Actor{CompanyID: companyID}, leadID)
	if err != nil {
		return nil, err
	}
	return l.Summarize(), nil
}

// List returns one page of the actor's company leads, newest first.
func (s *Service) List(ctx context.Context, actor tenant.Actor, req models.LeadListRequest) ([]Lead, models.PaginationInfo, error) {
	if err := validation.Struct(req); err != nil {
		return nil, models.PaginationInfo{}, err
	}

	preds := []*entsql.Predicate{entsql.EQ("company_id", actor.CompanyID)}
	if req.Status != "" {
		preds = append(preds, entsql.EQ("status", req.Status))
	}
	if req.Rating != "" {
		preds = append(preds, entsql.EQ("rating", req.Rating))
	}
	if req.UserID != nil {
		preds = append(preds, entsql.EQ("user_id", *req.UserID))
	}
	if req.NeedingFollowUp {
		preds = append(preds,
			entsql.NotNull("follow_up_date"),
			entsql.LTE("follow_up_date", today(s.now())),
			entsql.NotIn("status", StatusConverted, StatusLost),
		)
	}
	if term := strings.TrimSpace(req.Search); term != "" {
		var search []*entsql.Predicate
		for _, col := range []string{"first_name", "last_name", "email", "phone", "mobile", "company_name", "job_title"} {
			search = append(search, entsql.ContainsFold(col, term))
		}
		preds = append(preds, entsql.Or(search...))
	}
	where := entsql.And(preds...)

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	total, err := s.store.count(ctx, s.db.DB, where)
	if err != nil {
		return nil, models.PaginationInfo{}, err
	}
	items, err := s.store.query(ctx, s.db.DB, s.store.selector().
		Where(where).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(limit).
		Offset((page-1)*limit))
	if err != nil {
		return nil, models.PaginationInfo{}, err
	}
	if items == nil {
		items = []Lead{}
	}
	return items, models.NewPaginationInfo(page, limit, total), nil
}

// Update applies a partial edit, rescoring the lead. Status changes are audited.
func (s *Service) Update(ctx context.Context, actor tenant.Actor, id int64, req models.UpdateLeadRequest) (*Lead, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]string{}
	checkValue(req.EstimatedValue, fields)
	if req.FollowUpDate != nil && req.FollowUpDate.Time.Before(today(now)) {
		fields["follow_up_date"] = "must not be in the past"
	}
	if req.UserID != nil {
		if err := s.checkOwner(ctx, actor.CompanyID, *req.UserID, fields); err != nil {
			return nil, err
		}
	}

	l := *current
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&l.FirstName, req.FirstName)
	set(&l.LastName, req.LastName)
	set(&l.Phone, req.Phone)
	set(&l.Mobile, req.Mobile)
	set(&l.CompanyName, req.CompanyName)
	set(&l.JobTitle, req.JobTitle)
	set(&l.Website, req.Website)
	set(&l.Description, req.Description)
	set(&l.Status, req.Status)
	set(&l.Source, req.Source)
	set(&l.Industry, req.Industry)
	set(&l.Notes, req.Notes)
	set(&l.LostReason, req.LostReason)
	if req.Email != nil {
		l.Email = strings.TrimSpace(*req.Email)
	}
	if req.Currency != nil {
		l.Currency = strings.ToUpper(*req.Currency)
	}
	if req.Employees != nil {
		l.Employees = req.Employees
	}
	if req.EstimatedValue != nil {
		l.EstimatedValue = nullable(req.EstimatedValue)
	}
	if req.Priority != nil {
		l.Priority = *req.Priority
	}
	if req.FollowUpDate != nil {
		l.FollowUpDate = req.FollowUpDate.TimePtr()
	}
	if req.UserID != nil {
		l.UserID = req.UserID
	}
	if req.Tags != nil {
		l.Tags = req.Tags
	}

	if strings.TrimSpace(l.FirstName) == "" {
		fields["first_name"] = "is required"
	}
	if strings.TrimSpace(l.LastName) == "" {
		fields["last_name"] = "is required"
	}
	if l.Status == StatusLost && strings.TrimSpace(l.LostReason) == "" {
		fields["lost_reason"] = "is required when the lead is lost"
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}
	if l.Status != StatusLost {
		l.LostReason = ""
	}

	rescore(&l)
	l.UpdatedAt = now

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &l); err != nil {
			return err
		}
		if l.Status == current.Status {
			return nil
		}
		return s.recordStatusChange(ctx, tx, actor, &l, current.Status)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) recordStatusChange(ctx context.Context, q database.Querier, actor tenant.Actor, l *Lead, from string) error {
	return s.activities.Record(ctx, q, activity.Entry{
		CompanyID:   l.CompanyID,
		UserID:      actor.UserRef(),
		Subject:     activity.Lead(l.ID),
		Type:        activity.TypeLeadStatusChanged,
		Title:       "Lead Status Changed: " + l.FullName(),
		Description: fmt.Sprintf("Lead status changed from %s to %s", from, l.Status),
		Metadata: map[string]any{
			"lead_name":  l.FullName(),
			"old_status": from,
			"new_status": l.Status,
		},
	})
}

// MarkOpportunityCreated moves a lead to opportunity_created once a deal has
// been opened from it. Converted leads keep their status.
func (s *Service) MarkOpportunityCreated(ctx context.Context, actor tenant.Actor, leadID int64) error {
	current, err := s.load(ctx, actor, leadID)
	if err != nil {
		return err
	}
	if current.IsConverted() || current.Status == StatusOpportunityCreated {
		return nil
	}

	l := *current
	l.Status = StatusOpportunityCreated
	l.UpdatedAt = s.now()

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &l); err != nil {
			return err
		}
		return s.recordStatusChange(ctx, tx, actor, &l, current.Status)
	})
}

// Delete removes a lead. Opportunities opened from it keep existing without the link.
func (s *Service) Delete(ctx context.Context, actor tenant.Actor, id int64) error {
	l, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.store.delete(ctx, s.db.DB, l.ID)
}

// Convert turns a lead into a customer, with a primary contact when the lead
// has an email or phone, all in one transaction.
func (s *Service) Convert(ctx context.Context, actor tenant.Actor, id int64) (*Conversion, error) {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.IsConverted() {
		return nil, domain.NewConflictError("lead is already converted")
	}
	if s.customers == nil {
		return nil, fmt.Errorf("lead conversion is not configured")
	}

	now := s.now()
	l := *current
	out := &Conversion{Lead: &l}

	in := customers.NewCustomer{
		DisplayName:  l.FullName(),
		CustomerType: customers.TypeIndividual,
		FirstName:    l.FirstName,
		LastName:     l.LastName,
		Email:        l.Email,
		Phone:        l.Phone,
		Website:      l.Website,
		Industry:     l.Industry,
		Description:  l.Description,
	}
	if l.CompanyName != "" {
		in.DisplayName = l.CompanyName
		in.CustomerType = customers.TypeCompany
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := s.customers.CreateInTx(ctx, tx, actor, in)
		if err != nil {
			return err
		}
		out.Customer = c

		if l.Email != "" || l.Phone != "" {
			out.Contact, err = s.customers.AddContactInTx(ctx, tx, actor, c, customers.NewContact{
				FirstName: l.FirstName,
				LastName:  l.LastName,
				Email:     l.Email,
				Phone:     l.Phone,
				Mobile:    l.Mobile,
				JobTitle:  l.JobTitle,
				IsPrimary: true,
				IsActive:  true,
				Notes:     l.Notes,
			})
			if err != nil {
				return err
			}
		}

		l.Status = StatusConverted
		l.CustomerID = &c.ID
		l.ConvertedAt = &now
		l.ConvertedBy = actor.UserRef()
		l.UpdatedAt = now
		if err := s.store.update(ctx, tx, &l); err != nil {
			return err
		}

		if err := s.recordStatusChange(ctx, tx, actor, &l, current.Status); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   l.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Lead(l.ID),
			Type:        activity.TypeLeadConverted,
			Title:       "Lead Converted: " + l.FullName(),
			Description: fmt.Sprintf("Lead %s was converted to a customer", l.FullName()),
			Metadata: map[string]any{
				"lead_name":   l.FullName(),
				"customer_id": c.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
