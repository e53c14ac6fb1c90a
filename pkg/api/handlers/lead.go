package handlers

import (
	"net/http"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

// ConversionRecorder counts converted leads.
type ConversionRecorder interface {
	RecordLeadConverted()
}

type noConversions struct{}

func (noConversions) RecordLeadConverted() {}

// LeadHandler handles lead endpoints
type LeadHandler struct {
	service     *leads.Service
	conversions ConversionRecorder
}

// NewLeadHandler creates a new lead handler. conversions may be nil.
func NewLeadHandler(service *leads.Service, conversions ConversionRecorder) *LeadHandler {
	if conversions == nil {
		conversions = noConversions{}
	}
	return &LeadHandler{service: service, conversions: conversions}
}

// List godoc
// @Summary List leads
// @Tags Leads
// @Produce json
// @Param search query string false "Name, email, phone or company"
// @Param status query string false "Lead status"
// @Param rating query string false "hot, warm or cold"
// @Param needing_follow_up query bool false "Only leads with a due follow-up"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) List(c echo.Context) error {
	var req models.LeadListRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	items, page, err := h.service.List(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"leads":      items,
		"pagination": page,
	})
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(c echo.Context) error {
	var req models.CreateLeadRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	l, err := h.service.Create(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, mutation("Lead created successfully", "lead", l))
}

// Get handles GET /api/v1/leads/:id
func (h *LeadHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "lead")
	}

	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	details, err := h.service.Get(s.ctx, s.actor, id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "lead": details})
}

// Update handles PUT /api/v1/leads/:id
func (h *LeadHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "lead")
	}
	var req models.UpdateLeadRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	l, err := h.service.Update(s.ctx, s.actor, id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Lead updated successfully", "lead", l))
}

// Delete handles DELETE /api/v1/leads/:id
func (h *LeadHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "lead")
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	if err := h.service.Delete(s.ctx, s.actor, id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Lead deleted successfully", "", nil))
}

// Convert godoc
// @Summary Convert a lead into a customer
// @Description Creates the customer and, when the lead has an email or phone, its primary contact
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id}/convert [post]
func (h *LeadHandler) Convert(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "lead")
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	conv, err := h.service.Convert(s.ctx, s.actor, id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	h.conversions.RecordLeadConverted()

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "Lead converted successfully",
		"lead":     conv.Lead,
		"customer": conv.Customer,
		"contact":  conv.Contact,
	})
}

// RegisterRoutes registers lead routes
func (h *LeadHandler) RegisterRoutes(g *echo.Group) {
	can := middleware.RequirePermission
	ls := g.Group("/leads")

	ls.GET("", h.List, can(tenant.PermLeadsView))
	ls.POST("", h.Create, can(tenant.PermLeadsCreate))
	ls.GET("/:id", h.Get, can(tenant.PermLeadsView))
	ls.PUT("/:id", h.Update, can(tenant.PermLeadsEdit))
	ls.DELETE("/:id", h.Delete, can(tenant.PermLeadsDelete))
	ls.POST("/:id/convert", h.Convert, can(tenant.PermLeadsConvert))
}
