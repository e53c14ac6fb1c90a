package handlers

import (
	"net/http"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/labstack/echo/v4"
)

// UserHandler lists the company's users
type UserHandler struct {
	service *users.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *users.Service) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(c echo.Context) error {
	s, err := scope(c, readTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	list, err := h.service.ListByCompany(s.ctx, s.actor.CompanyID)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	if list == nil {
		list = []users.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": list})
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/users", h.List, middleware.RequirePermission(tenant.PermUsersView))
}
