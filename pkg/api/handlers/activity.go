package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

const recentWindow = 30 * 24 * time.Hour

var viewPermission = map[activity.SubjectKind]tenant.Permission{
	activity.SubjectOpportunity:     tenant.PermOpportunitiesView,
	activity.SubjectLead:            tenant.PermLeadsView,
	activity.SubjectCustomer:        tenant.PermCustomersView,
	activity.SubjectCustomerContact: tenant.PermCustomersView,
}

// ActivityHandler serves the audit trail
type ActivityHandler struct {
	service *activity.Service
	now     func() time.Time
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(service *activity.Service) *ActivityHandler {
	return &ActivityHandler{service: service, now: func() time.Time { return time.Now().UTC() }}
}

// List godoc
// @Summary List activities
// @Description Activities of one record when subject_type and subject_id are given, otherwise the company's last 30 days
// @Tags Activities
// @Produce json
// @Param subject_type query string false "opportunity, lead, customer or customer_contact"
// @Param subject_id query int false "Record ID"
// @Param limit query int false "Maximum entries (max 200)"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /activities [get]
func (h *ActivityHandler) List(c echo.Context) error {
	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	kind := activity.SubjectKind(c.QueryParam("subject_type"))
	rawID := c.QueryParam("subject_id")

	var items []activity.Activity
	if kind == "" && rawID == "" {
		items, err = h.service.ListRecent(s.ctx, s.actor.CompanyID, h.now().Add(-recentWindow), limit)
	} else {
		var subject activity.Subject
		subject, err = parseSubject(kind, rawID)
		if err == nil {
			err = s.actor.Require(viewPermission[kind])
		}
		if err == nil {
			items, err = h.service.ListForSubject(s.ctx, s.actor.CompanyID, subject, limit)
		}
	}
	if err != nil {
		return apierrors.Respond(c, err)
	}

	if items == nil {
		items = []activity.Activity{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "activities": items})
}

func parseSubject(kind activity.SubjectKind, rawID string) (activity.Subject, error) {
	fields := map[string]string{}
	if !kind.Valid() {
		fields["subject_type"] = "must be one of: opportunity, lead, customer, customer_contact"
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		fields["subject_id"] = "must be a positive integer"
	}
	if len(fields) > 0 {
		return activity.Subject{}, domain.NewFieldValidationError(fields)
	}
	return activity.Subject{Kind: kind, ID: id}, nil
}

// RegisterRoutes registers activity routes
func (h *ActivityHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/activities", h.List)
}
