// Package handlers exposes the pipeline services over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/api/middleware"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// requestScope is the authenticated actor and a bounded request context.
type requestScope struct {
	ctx    context.Context
	cancel context.CancelFunc
	actor  tenant.Actor
}

func scope(c echo.Context, timeout time.Duration) (*requestScope, error) {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	return &requestScope{ctx: ctx, cancel: cancel, actor: actor}, nil
}

// idParam parses the positive integer path parameter name.
func idParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c echo.Context, resource string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_id",
		Message: "Invalid " + resource + " ID",
	})
}

// bind decodes the request into req. A decode failure has already been
// answered when it returns false.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, apierrors.BadRequest(c, err)
	}
	return true, nil
}

// mutation is the envelope of every state-changing answer.
func mutation(message, key string, value any) echo.Map {
	out := echo.Map{"success": true, "message": message}
	if key != "" {
		out[key] = value
	}
	return out
}
