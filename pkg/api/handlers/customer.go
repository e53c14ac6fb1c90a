package handlers

import (
	"net/http"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/customers"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

// CustomerHandler handles customer and contact endpoints
type CustomerHandler struct {
	service *customers.Service
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(service *customers.Service) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Create handles POST /api/v1/customers
func (h *CustomerHandler) Create(c echo.Context) error {
	var req models.CreateCustomerRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	customer, err := h.service.Create(s.ctx, s.actor, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, mutation("Customer created successfully", "customer", customer))
}

// Get handles GET /api/v1/customers/:id
func (h *CustomerHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "customer")
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
	return c.JSON(http.StatusOK, echo.Map{"success": true, "customer": details})
}

// AddContact godoc
// @Summary Add a contact person to a customer
// @Description A primary contact demotes the customer's current primary
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param request body models.CreateContactRequest true "Contact"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /customers/{id}/contacts [post]
func (h *CustomerHandler) AddContact(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "customer")
	}
	var req models.CreateContactRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	contact, err := h.service.AddContact(s.ctx, s.actor, id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, mutation("Contact added successfully", "contact", contact))
}

func (h *CustomerHandler) contactAction(c echo.Context, message string, act func(s *requestScope, id int64) (*customers.Contact, error)) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidID(c, "contact")
	}

	s, err := scope(c, writeTimeout)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	defer s.cancel()

	contact, err := act(s, id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, mutation(message, "contact", contact))
}

// MakePrimary handles POST /api/v1/contacts/:id/make-primary
func (h *CustomerHandler) MakePrimary(c echo.Context) error {
	return h.contactAction(c, "Contact set as primary", func(s *requestScope, id int64) (*customers.Contact, error) {
		return h.service.MakePrimary(s.ctx, s.actor, id)
	})
}

// Activate handles POST /api/v1/contacts/:id/activate
func (h *CustomerHandler) Activate(c echo.Context) error {
	return h.contactAction(c, "Contact activated", func(s *requestScope, id int64) (*customers.Contact, error) {
		return h.service.SetActive(s.ctx, s.actor, id, true)
	})
}

// Deactivate handles POST /api/v1/contacts/:id/deactivate
func (h *CustomerHandler) Deactivate(c echo.Context) error {
	return h.contactAction(c, "Contact deactivated", func(s *requestScope, id int64) (*customers.Contact, error) {
		return h.service.SetActive(s.ctx, s.actor, id, false)
	})
}

// RegisterRoutes registers customer and contact routes
func (h *CustomerHandler) RegisterRoutes(g *echo.Group) {
	can := middleware.RequirePermission

	cs := g.Group("/customers")
	cs.POST("", h.Create, can(tenant.PermCustomersEdit))
	cs.GET("/:id", h.Get, can(tenant.PermCustomersView))
	cs.POST("/:id/contacts", h.AddContact, can(tenant.PermCustomersEdit))

	contacts := g.Group("/contacts", can(tenant.PermCustomersEdit))
	contacts.POST("/:id/make-primary", h.MakePrimary)
	contacts.POST("/:id/activate", h.Activate)
	contacts.POST("/:id/deactivate", h.Deactivate)
}
