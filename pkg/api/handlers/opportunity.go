package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/export"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/opportunity"
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/jordanlanch/dealpipe/pkg/validation"
	"github.com/labstack/echo/v4"
)

// ExportRecorder counts generated exports.
type ExportRecorder interface {
	RecordExportCreated()
}

type noExports struct{}

func (noExports) RecordExportCreated() {}

// OpportunityHandler handles opportunity endpoints
type OpportunityHandler struct {
	service *opportunity.Service
	users   users.Directory
	exports ExportRecorder
	log     logger.Logger
	now     func() time.Time
}

// NewOpportunityHandler creates a new opportunity handler. exports may be nil.
func NewOpportunityHandler(service *opportunity.Service, directory users.Directory, exports ExportRecorder, log logger.Logger) *OpportunityHandler {
	if exports == nil {
		exports = noExports{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OpportunityHandler{
		service: service,
		users:   directory,
		exports: exports,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *OpportunityHandler) view(o *opportunity.Opportunity) opportunity.View {
	return opportunity.NewView(o, h.now())
}

// List godoc
// @Summary List opportunities
// @Description Filter, sort and paginate the company's opportunities
// @Tags Opportunities
// @Produce json
// @Param pipeline query string false "Pipeline"
// @Param status query string false "Status"
// @Param stage query string false "Stage"
// @Param user_id query string false "Owner id or 'unassigned'"
// @Param search query string false "Free text search"
// @Param sort_by query string false "Sort column"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities [get]
func (h *OpportunityHandler) List(c echo.Context) error {
	var req models.OpportunityListRequest
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

	views := make([]opportunity.View, len(items))
	for i := range items {
		views[i] = h.view(&items[i])
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"opportunities": views,
		"pagination":    page,
	})
}

// Create godoc
// @Summary Create an opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body models.CreateOpportunityRequest true "Opportunity"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(c echo.Context) error {
	var req models.CreateOpportunityRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.Create(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, mutation("Opportunity created successfully", "opportunity", h.view(o)))
}

// Get godoc
// @Summary Get an opportunity with owner, lead and recent activities
// @Tags Opportunities
// @Produce json
// @Param id path int true "Opportunity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
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
	return c.JSON(http.StatusOK, echo.Map{"success": true, "opportunity": details})
}

// Update handles PUT /api/v1/opportunities/:id
func (h *OpportunityHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}
	var req models.UpdateOpportunityRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.Update(s.ctx, s.actor, id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Opportunity updated successfully", "opportunity", h.view(o)))
}

// Delete handles DELETE /api/v1/opportunities/:id
func (h *OpportunityHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	if err := h.service.Delete(s.ctx, s.actor, id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Opportunity deleted successfully", "", nil))
}

// MoveStage godoc
// @Summary Move an opportunity to another stage
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body models.MoveStageRequest true "Target stage"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities/{id}/move-stage [post]
func (h *OpportunityHandler) MoveStage(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}
	var req models.MoveStageRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := validation.Struct(req); err != nil {
		return apierrors.Respond(c, err)
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.MoveToStage(s.ctx, s.actor, id, pipeline.Stage(req.Stage), req.UserID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	message := fmt.Sprintf("Opportunity moved to %s", o.Stage.Label())
	return c.JSON(http.StatusOK, mutation(message, "opportunity", h.view(o)))
}

// MarkWon handles POST /api/v1/opportunities/:id/mark-won
func (h *OpportunityHandler) MarkWon(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}
	var req models.MarkWonRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.MarkAsWon(s.ctx, s.actor, id, req.ActualAmount, req.WonReason)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Opportunity marked as won", "opportunity", h.view(o)))
}

// MarkLost handles POST /api/v1/opportunities/:id/mark-lost
func (h *OpportunityHandler) MarkLost(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}
	var req models.MarkLostRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.MarkAsLost(s.ctx, s.actor, id, req.LostReason)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Opportunity marked as lost", "opportunity", h.view(o)))
}

// RecomputeProbability handles POST /api/v1/opportunities/:id/recompute-probability
func (h *OpportunityHandler) RecomputeProbability(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "opportunity")
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	o, err := h.service.RecomputeProbability(s.ctx, s.actor, id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation("Probability recalculated", "opportunity", h.view(o)))
}

// BulkUpdate godoc
// @Summary Apply owner, priority, stage or status changes to many opportunities
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body models.BulkUpdateOpportunitiesRequest true "Changes"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities/bulk-update [post]
func (h *OpportunityHandler) BulkUpdate(c echo.Context) error {
	var req models.BulkUpdateOpportunitiesRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	n, err := h.service.BulkUpdate(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("%d opportunities updated", n),
		"updated": n,
	})
}

func (h *OpportunityHandler) pipelineView(c echo.Context) (models.PipelineViewRequest, bool, error) {
	var req models.PipelineViewRequest
	if ok, err := bind(c, &req); !ok {
		return req, false, err
	}
	if err := validation.Struct(req); err != nil {
		return req, false, apierrors.Respond(c, err)
	}
	return req, true, nil
}

// Kanban handles GET /api/v1/opportunities/kanban
func (h *OpportunityHandler) Kanban(c echo.Context) error {
	req, ok, err := h.pipelineView(c)
	if !ok {
		return err
	}

	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	buckets, err := h.service.Kanban(s.ctx, s.actor, pipeline.Pipeline(req.Pipeline), req.UserID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	p := pipeline.Pipeline(req.Pipeline)
	if p == "" {
		p = pipeline.PipelineSales
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"pipeline":       p,
		"pipeline_label": p.Label(),
		"stages":         buckets,
	})
}

// Stats handles GET /api/v1/opportunities/stats
func (h *OpportunityHandler) Stats(c echo.Context) error {
	req, ok, err := h.pipelineView(c)
	if !ok {
		return err
	}

	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	stats, err := h.service.PipelineStats(s.ctx, s.actor, pipeline.Pipeline(req.Pipeline), req.UserID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": stats})
}

// Export godoc
// @Summary Download the filtered opportunity list as XLSX
// @Tags Opportunities
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /opportunities/export [get]
func (h *OpportunityHandler) Export(c echo.Context) error {
	var req models.OpportunityListRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	items, err := h.service.Export(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	owners, err := h.users.Lookup(s.ctx, s.actor.CompanyID, export.OwnerIDs(items)...)
	if err != nil {
		// Owner names are cosmetic; export without them.
		h.log.Warn("export owner lookup failed", "company_id", s.actor.CompanyID, "error", err)
		owners = nil
	}

	var buf bytes.Buffer
	if err := export.WriteOpportunities(&buf, items, owners); err != nil {
		return apierrors.InternalError(c, err)
	}
	h.exports.RecordExportCreated()

	filename := export.Filename(h.now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

// RegisterRoutes registers opportunity routes
func (h *OpportunityHandler) RegisterRoutes(g *echo.Group) {
	can := middleware.RequirePermission
	opps := g.Group("/opportunities")

	opps.GET("", h.List, can(tenant.PermOpportunitiesView))
	opps.POST("", h.Create, can(tenant.PermOpportunitiesCreate))
	opps.GET("/kanban", h.Kanban, can(tenant.PermOpportunitiesView))
	opps.GET("/stats", h.Stats, can(tenant.PermOpportunitiesView))
	opps.GET("/export", h.Export, can(tenant.PermOpportunitiesView))
	opps.POST("/bulk-update", h.BulkUpdate, can(tenant.PermOpportunitiesBulk))
	opps.GET("/:id", h.Get, can(tenant.PermOpportunitiesView))
	opps.PUT("/:id", h.Update, can(tenant.PermOpportunitiesEdit))
	opps.DELETE("/:id", h.Delete, can(tenant.PermOpportunitiesDelete))
	opps.POST("/:id/move-stage", h.MoveStage, can(tenant.PermOpportunitiesEdit))
	opps.POST("/:id/mark-won", h.MarkWon, can(tenant.PermOpportunitiesEdit))
	opps.POST("/:id/mark-lost", h.MarkLost, can(tenant.PermOpportunitiesEdit))
	opps.POST("/:id/recompute-probability", h.RecomputeProbability, can(tenant.PermOpportunitiesEdit))
}
