package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/customers"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/database/dbtest"
	"github.com/jordanlanch/dealpipe/pkg/export"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/opportunity"
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type counter struct{ exports, conversions int }

func (c *counter) RecordExportCreated() { c.exports++ }
func (c *counter) RecordLeadConverted() { c.conversions++ }

type fixture struct {
	db      *database.Client
	e       *echo.Echo
	counts  *counter
	rep     tenant.Actor
	admin   tenant.Actor
	viewer  tenant.Actor
	outside tenant.Actor
}

// asActor sets the context keys JWTMiddleware would set for a.
func asActor(a tenant.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.KeyUserID, a.UserID)
			c.Set(middleware.KeyCompanyID, a.CompanyID)
			c.Set(middleware.KeyRole, string(a.Role))
			return next(c)
		}
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	acme := dbtest.CreateCompany(t, db, "Acme")
	ana := dbtest.CreateUser(t, db, acme, "Ana Ruiz", "ana@acme.test", "sales-rep")
	mia := dbtest.CreateUser(t, db, acme, "Mia Weber", "mia@acme.test", "admin")
	vi := dbtest.CreateUser(t, db, acme, "Vi Tran", "vi@acme.test", "read-only")
	globex := dbtest.CreateCompany(t, db, "Globex")
	cy := dbtest.CreateUser(t, db, globex, "Cy Mora", "cy@globex.test", "admin")

	activities := activity.NewService(db)
	directory := users.NewService(db)
	customerSvc := customers.NewService(db, activities, nil, nil)
	leadSvc := leads.NewService(leads.Deps{
		DB:         db,
		Activities: activities,
		Users:      directory,
		Customers:  customerSvc,
	})
	oppSvc := opportunity.NewService(opportunity.Deps{
		DB:         db,
		Activities: activities,
		Users:      directory,
		Leads:      leadSvc,
	})

	f := &fixture{
		db:      db,
		e:       echo.New(),
		counts:  &counter{},
		rep:     tenant.Actor{UserID: ana, CompanyID: acme, Role: tenant.RoleSalesRep},
		admin:   tenant.Actor{UserID: mia, CompanyID: acme, Role: tenant.RoleAdmin},
		viewer:  tenant.Actor{UserID: vi, CompanyID: acme, Role: tenant.RoleReadOnly},
		outside: tenant.Actor{UserID: cy, CompanyID: globex, Role: tenant.RoleAdmin},
	}

	routes := []interface{ RegisterRoutes(*echo.Group) }{
		NewOpportunityHandler(oppSvc, directory, f.counts, nil),
		NewLeadHandler(leadSvc, f.counts),
		NewCustomerHandler(customerSvc),
		NewActivityHandler(activities),
		NewUserHandler(directory),
	}

	// One group per actor; the path prefix picks which.
	actors := map[string]tenant.Actor{"rep": f.rep, "admin": f.admin, "viewer": f.viewer, "outside": f.outside}
	for name, a := range actors {
		g := f.e.Group("/"+name+"/api/v1", asActor(a))
		for _, r := range routes {
			r.RegisterRoutes(g)
		}
	}
	return f
}

func (f *fixture) do(t *testing.T, as, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/"+as+"/api/v1"+path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type oppEnvelope struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	Opportunity opportunity.Opportunity `json:"opportunity"`
}

func (f *fixture) createDeal(t *testing.T, title string) opportunity.Opportunity {
	t.Helper()
	rec := f.do(t, "rep", http.MethodPost, "/opportunities", map[string]any{
		"title":         title,
		"stage":         "value_proposition",
		"amount":        "1000",
		"contact_email": "buyer@initech.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[oppEnvelope](t, rec).Opportunity
}

func TestOpportunity_Create(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "rep", http.MethodPost, "/opportunities", map[string]any{
		"title":  "Initech rollout",
		"stage":  "proposal",
		"amount": "2000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decode[oppEnvelope](t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Opportunity created successfully", env.Message)
	assert.Equal(t, "Initech rollout", env.Opportunity.Title)
	assert.Equal(t, pipeline.StatusActive, env.Opportunity.Status)
	assert.Equal(t, 5, env.Opportunity.StageOrder)
	assert.Equal(t, f.rep.CompanyID, env.Opportunity.CompanyID)

	raw := decode[map[string]any](t, rec)
	view := raw["opportunity"].(map[string]any)
	assert.Equal(t, "Proposal", view["stage_label"])
	assert.Equal(t, "Sales Pipeline", view["pipeline_label"])
}

func TestOpportunity_Create_Errors(t *testing.T) {
	f := setup(t)

	t.Run("validation", func(t *testing.T) {
		rec := f.do(t, "rep", http.MethodPost, "/opportunities", map[string]any{"stage": "nowhere"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Contains(t, resp.Fields, "title")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.do(t, "rep", http.MethodPost, "/opportunities", `{"title": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decode[models.ErrorResponse](t, rec).Error)
	})

	t.Run("read-only role", func(t *testing.T) {
		rec := f.do(t, "viewer", http.MethodPost, "/opportunities", map[string]any{"title": "x", "stage": "proposal"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestOpportunity_Get(t *testing.T) {
	f := setup(t)
	deal := f.createDeal(t, "Globex renewal")

	rec := f.do(t, "viewer", http.MethodGet, fmt.Sprintf("/opportunities/%d", deal.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	details := body["opportunity"].(map[string]any)
	assert.Equal(t, "Globex renewal", details["title"])
	assert.Equal(t, "Ana Ruiz", details["creator"].(map[string]any)["name"])
	assert.NotEmpty(t, details["activities"])

	tests := []struct {
		name string
		as   string
		path string
		want int
	}{
		{"other company", "outside", fmt.Sprintf("/opportunities/%d", deal.ID), http.StatusForbidden},
		{"unknown", "rep", "/opportunities/9999", http.StatusNotFound},
		{"bad id", "rep", "/opportunities/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.as, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestOpportunity_List(t *testing.T) {
	f := setup(t)
	f.createDeal(t, "Alpha")
	f.createDeal(t, "Beta")
	f.createDeal(t, "Gamma")

	rec := f.do(t, "rep", http.MethodGet, "/opportunities?limit=2&sort_by=title&sort_direction=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		Opportunities []opportunity.Opportunity `json:"opportunities"`
		Pagination    models.PaginationInfo     `json:"pagination"`
	}](t, rec)
	require.Len(t, body.Opportunities, 2)
	assert.Equal(t, "Alpha", body.Opportunities[0].Title)
	assert.Equal(t, 3, body.Pagination.Total)
	assert.True(t, body.Pagination.HasNext)

	rec = f.do(t, "outside", http.MethodGet, "/opportunities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[struct {
		Pagination models.PaginationInfo `json:"pagination"`
	}](t, rec).Pagination.Total)

	rec = f.do(t, "rep", http.MethodGet, "/opportunities?sort_by=secret_column", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOpportunity_Update(t *testing.T) {
	f := setup(t)
	deal := f.createDeal(t, "Initech")

	rec := f.do(t, "rep", http.MethodPut, fmt.Sprintf("/opportunities/%d", deal.ID), map[string]any{
		"title":    "Initech expansion",
		"priority": "high",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[oppEnvelope](t, rec)
	assert.Equal(t, "Initech expansion", env.Opportunity.Title)
	assert.Equal(t, pipeline.PriorityHigh, env.Opportunity.Priority)
}

func TestOpportunity_Transitions(t *testing.T) {
	f := setup(t)
	deal := f.createDeal(t, "Initech")
	path := fmt.Sprintf("/opportunities/%d", deal.ID)

	rec := f.do(t, "rep", http.MethodPost, path+"/move-stage", map[string]any{"stage": "negotiation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode[oppEnvelope](t, rec)
	assert.Equal(t, "Opportunity moved to Negotiation", env.Message)
	assert.Equal(t, pipeline.StageNegotiation, env.Opportunity.Stage)

	rec = f.do(t, "rep", http.MethodPost, path+"/move-stage", map[string]any{"stage": "nowhere"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, "rep", http.MethodPost, path+"/mark-lost", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Fields, "lost_reason")

	rec = f.do(t, "rep", http.MethodPost, path+"/mark-won", map[string]any{"actual_amount": "1200", "won_reason": "Best fit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env = decode[oppEnvelope](t, rec)
	assert.Equal(t, pipeline.StatusWon, env.Opportunity.Status)
	assert.Equal(t, pipeline.StageClosedWon, env.Opportunity.Stage)
	assert.Equal(t, "100", env.Opportunity.Probability.String())
	require.NotNil(t, env.Opportunity.WonBy)
	assert.Equal(t, f.rep.UserID, *env.Opportunity.WonBy)

	rec = f.do(t, "rep", http.MethodPost, path+"/recompute-probability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", decode[oppEnvelope](t, rec).Opportunity.Probability.String())

	rec = f.do(t, "outside", http.MethodPost, path+"/mark-lost", map[string]any{"lost_reason": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpportunity_Delete(t *testing.T) {
	f := setup(t)
	deal := f.createDeal(t, "Initech")
	path := fmt.Sprintf("/opportunities/%d", deal.ID)

	rec := f.do(t, "rep", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "admin", http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.SuccessResponse](t, rec).Success)

	rec = f.do(t, "admin", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpportunity_BulkUpdate(t *testing.T) {
	f := setup(t)
	a := f.createDeal(t, "A")
	b := f.createDeal(t, "B")
	req := map[string]any{"opportunity_ids": []int64{a.ID, b.ID}, "priority": "critical"}

	rec := f.do(t, "rep", http.MethodPost, "/opportunities/bulk-update", req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "admin", http.MethodPost, "/opportunities/bulk-update", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["updated"])
	assert.Equal(t, "2 opportunities updated", body["message"])

	rec = f.do(t, "outside", http.MethodPost, "/opportunities/bulk-update", req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOpportunity_KanbanAndStats(t *testing.T) {
	f := setup(t)
	f.createDeal(t, "A")
	f.createDeal(t, "B")

	rec := f.do(t, "viewer", http.MethodGet, "/opportunities/kanban", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	kanban := decode[struct {
		Pipeline pipeline.Pipeline         `json:"pipeline"`
		Stages   []opportunity.StageBucket `json:"stages"`
	}](t, rec)
	assert.Equal(t, pipeline.PipelineSales, kanban.Pipeline)
	require.Len(t, kanban.Stages, 8)
	assert.Equal(t, pipeline.StageValueProposition, kanban.Stages[3].Stage)
	assert.Equal(t, 2, kanban.Stages[3].Count)
	assert.Equal(t, "2000", kanban.Stages[3].TotalValue.String())

	rec = f.do(t, "viewer", http.MethodGet, "/opportunities/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Stats opportunity.PipelineStats `json:"stats"`
	}](t, rec).Stats
	assert.Equal(t, 2, stats.TotalOpportunities)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.True(t, stats.WinRate.IsZero())

	rec = f.do(t, "viewer", http.MethodGet, "/opportunities/stats?pipeline=unknown", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOpportunity_Export(t *testing.T) {
	f := setup(t)
	f.createDeal(t, "Initech")

	rec := f.do(t, "rep", http.MethodGet, "/opportunities/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), `attachment; filename="opportunities_`))
	assert.Equal(t, 1, f.counts.exports)

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Initech", rows[1][1])
	assert.Equal(t, "Ana Ruiz", rows[1][12])
}

func TestLead_CreateAndConvert(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "rep", http.MethodPost, "/leads", map[string]any{
		"first_name":   "Jo",
		"last_name":    "Smith",
		"email":        "jo@initech.test",
		"company_name": "Initech",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lead := decode[struct {
		Lead leads.Lead `json:"lead"`
	}](t, rec).Lead
	assert.Equal(t, "new", lead.Status)
	assert.Equal(t, 25, lead.Score)

	rec = f.do(t, "rep", http.MethodGet, "/leads?search=initech", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[struct {
		Pagination models.PaginationInfo `json:"pagination"`
	}](t, rec).Pagination.Total)

	convert := fmt.Sprintf("/leads/%d/convert", lead.ID)
	rec = f.do(t, "viewer", http.MethodPost, convert, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "rep", http.MethodPost, convert, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	conv := decode[struct {
		Lead     leads.Lead         `json:"lead"`
		Customer customers.Customer `json:"customer"`
		Contact  *customers.Contact `json:"contact"`
	}](t, rec)
	assert.Equal(t, "converted", conv.Lead.Status)
	assert.Equal(t, "Initech", conv.Customer.DisplayName)
	require.NotNil(t, conv.Contact)
	assert.True(t, conv.Contact.IsPrimary)
	assert.Equal(t, 1, f.counts.conversions)

	rec = f.do(t, "rep", http.MethodPost, convert, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, f.counts.conversions)
}

func TestLead_UpdateAndDelete(t *testing.T) {
	f := setup(t)
	rec := f.do(t, "rep", http.MethodPost, "/leads", map[string]any{"first_name": "Jo", "last_name": "Smith"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[struct {
		Lead leads.Lead `json:"lead"`
	}](t, rec).Lead.ID
	path := fmt.Sprintf("/leads/%d", id)

	rec = f.do(t, "rep", http.MethodPut, path, map[string]any{"status": "contacted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, "rep", http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[map[string]any](t, rec)["lead"].(map[string]any)
	assert.Equal(t, "contacted", details["status"])

	rec = f.do(t, "rep", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, "admin", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomer_Contacts(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "rep", http.MethodPost, "/customers", map[string]any{"display_name": "Initech"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customerID := decode[struct {
		Customer customers.Customer `json:"customer"`
	}](t, rec).Customer.ID

	addContact := func(first string, primary bool) customers.Contact {
		rec := f.do(t, "rep", http.MethodPost, fmt.Sprintf("/customers/%d/contacts", customerID), map[string]any{
			"first_name": first,
			"last_name":  "Doe",
			"is_primary": primary,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[struct {
			Contact customers.Contact `json:"contact"`
		}](t, rec).Contact
	}
	first := addContact("Ann", true)
	second := addContact("Ben", false)

	rec = f.do(t, "rep", http.MethodPost, fmt.Sprintf("/contacts/%d/make-primary", second.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, "rep", http.MethodPost, fmt.Sprintf("/contacts/%d/deactivate", first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[struct {
		Contact customers.Contact `json:"contact"`
	}](t, rec).Contact.IsActive)

	rec = f.do(t, "rep", http.MethodGet, fmt.Sprintf("/customers/%d", customerID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[struct {
		Customer customers.Details `json:"customer"`
	}](t, rec).Customer
	require.Len(t, details.Contacts, 2)
	assert.Equal(t, second.ID, details.Contacts[0].ID)
	assert.True(t, details.Contacts[0].IsPrimary)
	assert.False(t, details.Contacts[1].IsPrimary)

	rec = f.do(t, "outside", http.MethodPost, fmt.Sprintf("/contacts/%d/activate", first.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActivities(t *testing.T) {
	f := setup(t)
	deal := f.createDeal(t, "Initech")

	rec := f.do(t, "rep", http.MethodGet, fmt.Sprintf("/activities?subject_type=opportunity&subject_id=%d", deal.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := decode[struct {
		Activities []activity.Activity `json:"activities"`
	}](t, rec).Activities
	require.Len(t, items, 1)
	assert.Equal(t, activity.TypeCreated, items[0].Type)

	rec = f.do(t, "rep", http.MethodGet, "/activities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[struct {
		Activities []activity.Activity `json:"activities"`
	}](t, rec).Activities)

	rec = f.do(t, "outside", http.MethodGet, fmt.Sprintf("/activities?subject_type=opportunity&subject_id=%d", deal.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Activities []activity.Activity `json:"activities"`
	}](t, rec).Activities)

	rec = f.do(t, "rep", http.MethodGet, "/activities?subject_type=invoice&subject_id=x", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decode[models.ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "subject_type")
	assert.Contains(t, fields, "subject_id")
}

func TestUsers_List(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "viewer", http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Users []users.User `json:"users"`
	}](t, rec).Users
	assert.Len(t, list, 3)
	for _, u := range list {
		assert.Equal(t, f.viewer.CompanyID, u.CompanyID)
	}
}

func TestHandlers_RequireActor(t *testing.T) {
	e := echo.New()
	h := NewUserHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.List(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		db, cache Pinger
		want      int
		wantCache string
	}{
		{"healthy", pinger{}, pinger{}, http.StatusOK, "up"},
		{"no cache configured", pinger{}, nil, http.StatusOK, "disabled"},
		{"cache down", pinger{}, pinger{errors.New("refused")}, http.StatusServiceUnavailable, "down"},
		{"db down", pinger{errors.New("refused")}, pinger{}, http.StatusServiceUnavailable, "up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

			require.NoError(t, NewHealthHandler(tt.db, tt.cache).Check(c))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantCache, decode[map[string]any](t, rec)["cache"])
		})
	}
}
