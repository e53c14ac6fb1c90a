// Package opportunity is the pipeline engine: opportunity records, win
// probability scoring, stage transitions, derived-field maintenance and the
// kanban and statistics views.
package opportunity

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/jordanlanch/dealpipe/pkg/validation"
	"github.com/shopspring/decimal"
)

const (
	historyLimit   = 50
	maxReasonChars = 1000
)

// ActivityLog records and reads audit entries.
type ActivityLog interface {
	activity.Recorder
	ListForSubject(ctx context.Context, companyID int64, subject activity.Subject, limit int) ([]activity.Activity, error)
}

// LeadLinker is the lead side of the opportunity/lead relationship.
type LeadLinker interface {
	Summary(ctx context.Context, companyID, leadID int64) (*leads.Summary, error)
	MarkOpportunityCreated(ctx context.Context, actor tenant.Actor, leadID int64) error
}

// Observer is told about committed pipeline changes.
type Observer interface {
	OpportunityCreated(p pipeline.Pipeline)
	StageChanged(p pipeline.Pipeline, from, to pipeline.Stage)
	DealClosed(p pipeline.Pipeline, outcome pipeline.Status)
}

type nopObserver struct{}

func (nopObserver) OpportunityCreated(pipeline.Pipeline)                           {}
func (nopObserver) StageChanged(pipeline.Pipeline, pipeline.Stage, pipeline.Stage) {}
func (nopObserver) DealClosed(pipeline.Pipeline, pipeline.Status)                  {}

// Deps are the collaborators of the Service. Leads and Observer are optional.
type Deps struct {
	DB         *database.Client
	Activities ActivityLog
	Users      users.Directory
	Leads      LeadLinker
	Observer   Observer
	Logger     logger.Logger
}

// Service runs every opportunity operation on behalf of an actor.
type Service struct {
	db         *database.Client
	store      *store
	activities ActivityLog
	users      users.Directory
	leads      LeadLinker
	observer   Observer
	log        logger.Logger
	now        func() time.Time
}

// NewService creates a new opportunity service
func NewService(d Deps) *Service {
	s := &Service{
		db:         d.DB,
		store:      &store{db: d.DB},
		activities: d.Activities,
		users:      d.Users,
		leads:      d.Leads,
		observer:   d.Observer,
		log:        d.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// load returns a live opportunity of the actor's company.
func (s *Service) load(ctx context.Context, actor tenant.Actor, id int64) (*Opportunity, error) {
	o, err := s.store.get(ctx, s.db.DB, id)
	if err != nil {
		return nil, err
	}
	if err := actor.Owns("opportunity", o.CompanyID); err != nil {
		return nil, err
	}
	return o, nil
}

// checkUsers verifies that every id is a user of the company.
func (s *Service) checkUsers(ctx context.Context, companyID int64, field string, ids []int64, fields map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.users.Lookup(ctx, companyID, ids...)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			fields[field] = "must be a user of your company"
			return nil
		}
	}
	return nil
}

func (s *Service) checkLead(ctx context.Context, companyID, leadID int64, fields map[string]string) error {
	if s.leads == nil {
		fields["lead_id"] = "leads are not available"
		return nil
	}
	_, err := s.leads.Summary(ctx, companyID, leadID)
	switch {
	case err == nil:
		return nil
	case domain.IsNotFound(err), domain.IsForbidden(err):
		fields["lead_id"] = "must be a lead of your company"
		return nil
	default:
		return err
	}
}

func teamFromInput(in []models.TeamMemberInput) ([]TeamMember, []int64) {
	if len(in) == 0 {
		return nil, nil
	}
	team := make([]TeamMember, 0, len(in))
	ids := make([]int64, 0, len(in))
	seen := map[int64]bool{}
	for _, m := range in {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		team = append(team, TeamMember{UserID: m.UserID, Role: m.Role})
		ids = append(ids, m.UserID)
	}
	return team, ids
}

func checkAmount(field string, amount *decimal.Decimal, fields map[string]string) {
	if amount != nil && amount.IsNegative() {
		fields[field] = "must be greater than or equal to 0"
	}
}

func checkNotPast(field string, d *models.Date, today time.Time, fields map[string]string) {
	if d != nil && d.Time.Before(today) {
		fields[field] = "must not be in the past"
	}
}

func checkStage(p pipeline.Pipeline, stage pipeline.Stage, fields map[string]string) {
	if !pipeline.CatalogFor(p).Has(stage) {
		fields["stage"] = "unknown stage"
	}
}

func nullableAmount(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// Create validates and stores a new opportunity. A linked lead is moved to
// opportunity_created after commit; a failure there is only logged.
func (s *Service) Create(ctx context.Context, actor tenant.Actor, req models.CreateOpportunityRequest) (*Opportunity, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	today := dateOf(now)
	fields := map[string]string{}

	p := pipeline.Pipeline(req.Pipeline)
	if p == "" {
		p = pipeline.PipelineSales
	}
	stage := pipeline.Stage(req.Stage)
	checkStage(p, stage, fields)
	checkAmount("amount", req.Amount, fields)
	checkNotPast("expected_close_date", req.ExpectedCloseDate, today, fields)
	checkNotPast("follow_up_date", req.FollowUpDate, today, fields)

	owner := actor.UserRef()
	if req.UserID != nil {
		owner = req.UserID
		if err := s.checkUsers(ctx, actor.CompanyID, "user_id", []int64{*req.UserID}, fields); err != nil {
			return nil, err
		}
	}
	team, teamIDs := teamFromInput(req.TeamMembers)
	if err := s.checkUsers(ctx, actor.CompanyID, "team_members", teamIDs, fields); err != nil {
		return nil, err
	}
	if req.LeadID != nil {
		if err := s.checkLead(ctx, actor.CompanyID, *req.LeadID, fields); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}

	priority := pipeline.Priority(req.Priority)
	if priority == "" {
		priority = pipeline.PriorityMedium
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	o := Opportunity{
		CompanyID:             actor.CompanyID,
		UserID:                owner,
		LeadID:                req.LeadID,
		Title:                 req.Title,
		Description:           req.Description,
		AccountName:           req.AccountName,
		Pipeline:              p,
		Amount:                nullableAmount(req.Amount),
		Currency:              currency,
		ExpectedCloseDays:     req.ExpectedCloseDays,
		Status:                pipeline.StatusActive,
		Priority:              priority,
		Type:                  pipeline.DealType(req.Type),
		Source:                pipeline.Source(req.Source),
		ContactName:           req.ContactName,
		ContactEmail:          req.ContactEmail,
		ContactPhone:          req.ContactPhone,
		DecisionMaker:         req.DecisionMaker,
		DecisionMakers:        req.DecisionMakers,
		Competitors:           req.Competitors,
		CompetitiveAdvantages: req.CompetitiveAdvantages,
		CompetitiveWeaknesses: req.CompetitiveWeaknesses,
		ExpectedCloseDate:     req.ExpectedCloseDate.TimePtr(),
		NextSteps:             req.NextSteps,
		FollowUpDate:          req.FollowUpDate.TimePtr(),
		TeamMembers:           team,
		CreatedBy:             actor.UserRef(),
		CustomFields:          req.CustomFields,
		Tags:                  req.Tags,
		Notes:                 req.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	// Entering through the transition rules keeps status in line with a terminal stage.
	o = MoveToStage(o, stage, actor.UserID, nil, now)
	o = PrepareForPersist(o)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.store.insert(ctx, tx, &o)
		if err != nil {
			return err
		}
		o.ID = id
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeCreated,
			Title:       "Opportunity created",
			Description: fmt.Sprintf("Opportunity %q created", o.Title),
			Metadata:    auditProperties(&o),
		})
	})
	if err != nil {
		return nil, err
	}

	if o.LeadID != nil && s.leads != nil {
		if err := s.leads.MarkOpportunityCreated(ctx, actor, *o.LeadID); err != nil {
			s.log.Warn("failed to update lead after opportunity creation",
				"lead_id", *o.LeadID, "opportunity_id", o.ID, "error", err)
		}
	}
	s.observer.OpportunityCreated(o.Pipeline)
	if o.Status.IsClosed() {
		s.observer.DealClosed(o.Pipeline, o.Status)
	}

	return &o, nil
}

// Get returns one opportunity of the actor's company with related records.
func (s *Service) Get(ctx context.Context, actor tenant.Actor, id int64) (*Details, error) {
	o, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	d := &Details{View: NewView(o, s.now())}

	ids := []int64{}
	for _, ref := range []*int64{o.UserID, o.CreatedBy, o.WonBy, o.LostBy} {
		if ref != nil {
			ids = append(ids, *ref)
		}
	}
	for _, m := range o.TeamMembers {
		ids = append(ids, m.UserID)
	}
	people, err := s.users.Lookup(ctx, o.CompanyID, ids...)
	if err != nil {
		return nil, err
	}
	d.Owner = pick(people, o.UserID)
	d.Creator = pick(people, o.CreatedBy)
	d.Winner = pick(people, o.WonBy)
	d.Loser = pick(people, o.LostBy)
	for _, m := range o.TeamMembers {
		if u, ok := people[m.UserID]; ok {
			d.Team = append(d.Team, u)
		}
	}

	if o.LeadID != nil && s.leads != nil {
		lead, err := s.leads.Summary(ctx, o.CompanyID, *o.LeadID)
		if err != nil {
			s.log.Warn("failed to load linked lead", "lead_id", *o.LeadID, "error", err)
		} else {
			d.Lead = lead
		}
	}

	d.Activities, err = s.activities.ListForSubject(ctx, o.CompanyID, activity.Opportunity(o.ID), historyLimit)
	if err != nil {
		return nil, err
	}
	if d.Activities == nil {
		d.Activities = []activity.Activity{}
	}
	return d, nil
}

func pick(people map[int64]users.User, id *int64) *users.User {
	if id == nil {
		return nil
	}
	u, ok := people[*id]
	if !ok {
		return nil
	}
	return &u
}

// List returns one page of the actor's company opportunities.
func (s *Service) List(ctx context.Context, actor tenant.Actor, req models.OpportunityListRequest) ([]Opportunity, models.PaginationInfo, error) {
	if err := validation.Struct(req); err != nil {
		return nil, models.PaginationInfo{}, err
	}
	where, err := listPredicate(actor.CompanyID, req)
	if err != nil {
		return nil, models.PaginationInfo{}, err
	}
	page, limit := pageAndLimit(req)

	total, err := s.store.count(ctx, s.db.DB, where)
	if err != nil {
		return nil, models.PaginationInfo{}, err
	}

	items, err := s.store.query(ctx, s.db.DB, s.store.selector().
		Where(where).
		OrderBy(listOrder(req)...).
		Limit(limit).
		Offset((page-1)*limit))
	if err != nil {
		return nil, models.PaginationInfo{}, err
	}
	if items == nil {
		items = []Opportunity{}
	}

	return items, models.NewPaginationInfo(page, limit, total), nil
}

// Export returns every opportunity matching the list filters, up to maxExportRows.
func (s *Service) Export(ctx context.Context, actor tenant.Actor, req models.OpportunityListRequest) ([]Opportunity, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	where, err := listPredicate(actor.CompanyID, req)
	if err != nil {
		return nil, err
	}
	return s.store.query(ctx, s.db.DB, s.store.selector().
		Where(where).
		OrderBy(listOrder(req)...).
		Limit(maxExportRows))
}

// Update applies a partial edit. A stage change follows the transition rules.
func (s *Service) Update(ctx context.Context, actor tenant.Actor, id int64, req models.UpdateOpportunityRequest) (*Opportunity, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]string{}
	o := *current

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			fields["title"] = "is required"
		}
		o.Title = *req.Title
	}
	if req.Pipeline != nil {
		o.Pipeline = pipeline.Pipeline(*req.Pipeline)
	}
	if req.Stage != nil {
		checkStage(o.Pipeline, pipeline.Stage(*req.Stage), fields)
	}
	checkAmount("amount", req.Amount, fields)
	if req.UserID != nil {
		if err := s.checkUsers(ctx, actor.CompanyID, "user_id", []int64{*req.UserID}, fields); err != nil {
			return nil, err
		}
	}
	var team []TeamMember
	if req.TeamMembers != nil {
		var teamIDs []int64
		team, teamIDs = teamFromInput(req.TeamMembers)
		if err := s.checkUsers(ctx, actor.CompanyID, "team_members", teamIDs, fields); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}

	setString(&o.Description, req.Description)
	setString(&o.AccountName, req.AccountName)
	setString(&o.ContactName, req.ContactName)
	setString(&o.ContactEmail, req.ContactEmail)
	setString(&o.ContactPhone, req.ContactPhone)
	setString(&o.DecisionMaker, req.DecisionMaker)
	setString(&o.Competitors, req.Competitors)
	setString(&o.CompetitiveAdvantages, req.CompetitiveAdvantages)
	setString(&o.CompetitiveWeaknesses, req.CompetitiveWeaknesses)
	setString(&o.NextSteps, req.NextSteps)
	setString(&o.Notes, req.Notes)
	if req.Amount != nil {
		o.Amount = nullableAmount(req.Amount)
	}
	if req.Currency != nil {
		o.Currency = strings.ToUpper(*req.Currency)
	}
	if req.ExpectedCloseDays != nil {
		o.ExpectedCloseDays = req.ExpectedCloseDays
	}
	if req.Priority != nil {
		o.Priority = pipeline.Priority(*req.Priority)
	}
	if req.Type != nil {
		o.Type = pipeline.DealType(*req.Type)
	}
	if req.Source != nil {
		o.Source = pipeline.Source(*req.Source)
	}
	if req.DecisionMakers != nil {
		o.DecisionMakers = req.DecisionMakers
	}
	if req.ExpectedCloseDate != nil {
		o.ExpectedCloseDate = req.ExpectedCloseDate.TimePtr()
	}
	if req.FollowUpDate != nil {
		o.FollowUpDate = req.FollowUpDate.TimePtr()
	}
	if req.UserID != nil {
		o.UserID = req.UserID
	}
	if req.TeamMembers != nil {
		o.TeamMembers = team
	}
	if req.Tags != nil {
		o.Tags = req.Tags
	}
	if req.CustomFields != nil {
		o.CustomFields = req.CustomFields
	}

	if req.Stage != nil && pipeline.Stage(*req.Stage) != current.Stage {
		o = MoveToStage(o, pipeline.Stage(*req.Stage), actor.UserID, nil, now)
	} else {
		o.StageOrder = pipeline.CatalogFor(o.Pipeline).OrderOf(o.Stage)
		o.Probability = CalculateProbability(&o, now)
	}
	o.UpdatedAt = now
	o = PrepareForPersist(o)

	changes := describeChanges(current, &o)
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &o); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeUpdated,
			Title:       "Opportunity updated",
			Description: strings.Join(changes, ", "),
			Metadata:    auditProperties(&o),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(current, &o)
	return &o, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// describeChanges lists the audited changes between two versions of a record.
func describeChanges(before, after *Opportunity) []string {
	var out []string
	if before.Status != after.Status {
		out = append(out, fmt.Sprintf("Status changed to %s", after.Status))
	}
	if before.Stage != after.Stage {
		out = append(out, fmt.Sprintf("Stage changed to %s", after.Stage))
	}
	if !sameAmount(before.Amount, after.Amount) {
		if after.Amount.Valid {
			out = append(out, fmt.Sprintf("Amount updated to %s", after.Amount.Decimal.StringFixed(2)))
		} else {
			out = append(out, "Amount removed")
		}
	}
	if !sameRef(before.UserID, after.UserID) {
		out = append(out, "Assigned to new user")
	}
	return out
}

func sameAmount(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func auditProperties(o *Opportunity) map[string]any {
	props := map[string]any{
		"title":       o.Title,
		"stage":       string(o.Stage),
		"status":      string(o.Status),
		"probability": o.Probability.String(),
		"user_id":     o.UserID,
	}
	if o.Amount.Valid {
		props["amount"] = o.Amount.Decimal.String()
	} else {
		props["amount"] = nil
	}
	return props
}

// notifyTransition reports stage and close changes to the observer.
func (s *Service) notifyTransition(before, after *Opportunity) {
	if before.Stage != after.Stage {
		s.observer.StageChanged(after.Pipeline, before.Stage, after.Stage)
	}
	if after.Status.IsClosed() && (before.Status != after.Status || !sameDay(before.ClosedDate, after.ClosedDate)) {
		s.observer.DealClosed(after.Pipeline, after.Status)
	}
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Delete soft-deletes an opportunity; it stays available for history.
func (s *Service) Delete(ctx context.Context, actor tenant.Actor, id int64) error {
	o, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.softDelete(ctx, tx, o.ID, s.now()); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeDeleted,
			Title:       "Opportunity deleted",
			Description: fmt.Sprintf("Opportunity %q deleted", o.Title),
			Metadata:    auditProperties(o),
		})
	})
}

// MoveToStage moves an opportunity to another stage of its pipeline,
// optionally reassigning it.
func (s *Service) MoveToStage(ctx context.Context, actor tenant.Actor, id int64, stage pipeline.Stage, ownerID *int64) (*Opportunity, error) {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	checkStage(current.Pipeline, stage, fields)
	if ownerID != nil {
		if err := s.checkUsers(ctx, actor.CompanyID, "user_id", []int64{*ownerID}, fields); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}

	now := s.now()
	o := MoveToStage(*current, stage, actor.UserID, ownerID, now)
	o.UpdatedAt = now
	o = PrepareForPersist(o)

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &o); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeStageChanged,
			Title:       "Stage changed",
			Description: fmt.Sprintf("Moved from '%s' to '%s'", current.Stage, o.Stage),
			Metadata: map[string]any{
				"old_stage": string(current.Stage),
				"new_stage": string(o.Stage),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(current, &o)
	return &o, nil
}

// MarkAsWon closes an opportunity as won.
func (s *Service) MarkAsWon(ctx context.Context, actor tenant.Actor, id int64, actualAmount *decimal.Decimal, reason string) (*Opportunity, error) {
	fields := map[string]string{}
	checkAmount("actual_amount", actualAmount, fields)
	if len(reason) > maxReasonChars {
		fields["won_reason"] = fmt.Sprintf("must be at most %d characters", maxReasonChars)
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := MarkAsWon(*current, actor.UserID, actualAmount, reason, now)
	o.UpdatedAt = now
	o = PrepareForPersist(o)

	meta := map[string]any{"won_reason": o.WonReason, "actual_amount": nil}
	if o.ActualAmount.Valid {
		meta["actual_amount"] = o.ActualAmount.Decimal.String()
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &o); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeWon,
			Title:       "Opportunity won",
			Description: fmt.Sprintf("Opportunity won for %s", o.Title),
			Metadata:    meta,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(current, &o)
	return &o, nil
}

// MarkAsLost closes an opportunity as lost. A reason is required.
func (s *Service) MarkAsLost(ctx context.Context, actor tenant.Actor, id int64, reason string) (*Opportunity, error) {
	switch {
	case strings.TrimSpace(reason) == "":
		return nil, domain.NewFieldValidationError(map[string]string{"lost_reason": "is required"})
	case len(reason) > maxReasonChars:
		return nil, domain.NewFieldValidationError(map[string]string{
			"lost_reason": fmt.Sprintf("must be at most %d characters", maxReasonChars),
		})
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := MarkAsLost(*current, actor.UserID, reason, now)
	o.UpdatedAt = now
	o = PrepareForPersist(o)

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &o); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      actor.UserRef(),
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeLost,
			Title:       "Opportunity lost",
			Description: fmt.Sprintf("Opportunity lost for %s", o.Title),
			Metadata:    map[string]any{"lost_reason": o.LostReason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(current, &o)
	return &o, nil
}

// RecomputeProbability refreshes the probability from the current attributes.
func (s *Service) RecomputeProbability(ctx context.Context, actor tenant.Actor, id int64) (*Opportunity, error) {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	o, err := s.refresh(ctx, actor.UserRef(), current)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) refresh(ctx context.Context, userID *int64, current *Opportunity) (*Opportunity, error) {
	now := s.now()
	o := *current
	o.Probability = CalculateProbability(&o, now)
	o.UpdatedAt = now
	o = PrepareForPersist(o)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.update(ctx, tx, &o); err != nil {
			return err
		}
		return s.activities.Record(ctx, tx, activity.Entry{
			CompanyID:   o.CompanyID,
			UserID:      userID,
			Subject:     activity.Opportunity(o.ID),
			Type:        activity.TypeProbabilityUpdated,
			Title:       "Probability updated",
			Description: fmt.Sprintf("Probability changed from %s%% to %s%%", current.Probability, o.Probability),
			Metadata: map[string]any{
				"old_probability": current.Probability.String(),
				"new_probability": o.Probability.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// RefreshOpenProbabilities recomputes the probability of every active
// opportunity of a company whose score has drifted, e.g. because its expected
// close date has passed. Each record is written in its own transaction.
func (s *Service) RefreshOpenProbabilities(ctx context.Context, companyID int64) (int, error) {
	open, err := s.store.openForCompany(ctx, s.db.DB, companyID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	refreshed := 0
	for i := range open {
		if CalculateProbability(&open[i], now).Equal(open[i].Probability) {
			continue
		}
		if _, err := s.refresh(ctx, nil, &open[i]); err != nil {
			return refreshed, fmt.Errorf("refresh opportunity %d: %w", open[i].ID, err)
		}
		refreshed++
	}
	return refreshed, nil
}

// BulkUpdate applies the same changes to many opportunities in one
// transaction. Any id outside the actor's company rejects the whole batch.
func (s *Service) BulkUpdate(ctx context.Context, actor tenant.Actor, req models.BulkUpdateOpportunitiesRequest) (int, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	if req.UserID == nil && req.Priority == "" && req.Stage == "" && req.Status == "" {
		return 0, domain.NewValidationError("no changes requested")
	}

	fields := map[string]string{}
	if req.Stage != "" {
		checkStage(pipeline.PipelineSales, pipeline.Stage(req.Stage), fields)
	}
	if req.UserID != nil {
		if err := s.checkUsers(ctx, actor.CompanyID, "user_id", []int64{*req.UserID}, fields); err != nil {
			return 0, err
		}
	}
	if len(fields) > 0 {
		return 0, domain.NewFieldValidationError(fields)
	}

	ids := uniqueIDs(req.IDs)
	found, err := s.store.byIDs(ctx, s.db.DB, ids)
	if err != nil {
		return 0, err
	}
	for _, o := range found {
		if err := actor.Owns("opportunity", o.CompanyID); err != nil {
			return 0, err
		}
	}
	if len(found) != len(ids) {
		return 0, domain.NewNotFoundError("opportunity")
	}

	now := s.now()
	updated := make([]Opportunity, len(found))
	for i := range found {
		o, err := applyBulk(found[i], req, actor.UserID, now)
		if err != nil {
			return 0, err
		}
		o.UpdatedAt = now
		updated[i] = PrepareForPersist(o)
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range updated {
			o := &updated[i]
			if err := s.store.update(ctx, tx, o); err != nil {
				return err
			}
			changes := describeChanges(&found[i], o)
			if len(changes) == 0 {
				continue
			}
			meta := auditProperties(o)
			meta["bulk"] = true
			if err := s.activities.Record(ctx, tx, activity.Entry{
				CompanyID:   o.CompanyID,
				UserID:      actor.UserRef(),
				Subject:     activity.Opportunity(o.ID),
				Type:        activity.TypeUpdated,
				Title:       "Opportunity updated",
				Description: strings.Join(changes, ", "),
				Metadata:    meta,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := range updated {
		s.notifyTransition(&found[i], &updated[i])
	}
	return len(updated), nil
}

// applyBulk applies bulk changes to one record. Won and lost statuses close
// the deal through its terminal stage.
func applyBulk(o Opportunity, req models.BulkUpdateOpportunitiesRequest, actorID int64, now time.Time) (Opportunity, error) {
	if req.UserID != nil {
		owner := *req.UserID
		o.UserID = &owner
	}
	if req.Priority != "" {
		o.Priority = pipeline.Priority(req.Priority)
	}
	if req.Stage != "" && pipeline.Stage(req.Stage) != o.Stage {
		o = MoveToStage(o, pipeline.Stage(req.Stage), actorID, nil, now)
	}

	switch status := pipeline.Status(req.Status); status {
	case "":
	case pipeline.StatusWon:
		o = MoveToStage(o, pipeline.StageClosedWon, actorID, nil, now)
	case pipeline.StatusLost:
		o = MoveToStage(o, pipeline.StageClosedLost, actorID, nil, now)
	default:
		if o.Stage.IsTerminal() {
			return o, domain.NewFieldValidationError(map[string]string{
				"status": fmt.Sprintf("opportunity %d is closed; move it to an open stage first", o.ID),
			})
		}
		o.Status = status
	}

	o.Probability = CalculateProbability(&o, now)
	return o, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
