package middleware

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/jordanlanch/dealpipe/pkg/api/errors"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

// CompanyAuthorizer loads a company and checks it may be used now.
type CompanyAuthorizer interface {
	Authorize(ctx context.Context, companyID int64) (*tenant.Company, error)
}

// TenantMiddleware rejects requests of suspended companies and expired
// trials. It must run after JWTMiddleware.
func TenantMiddleware(companies CompanyAuthorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFrom(c)
			if err != nil {
				return apierrors.Respond(c, err)
			}

			company, err := companies.Authorize(c.Request().Context(), actor.CompanyID)
			switch {
			case errors.Is(err, tenant.ErrCompanySuspended):
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "company_suspended",
					Message: "Your company account is suspended. Please contact support.",
				})
			case errors.Is(err, tenant.ErrTrialExpired):
				return c.JSON(http.StatusPaymentRequired, models.ErrorResponse{
					Error:   "trial_expired",
					Message: "Your trial has expired. Please upgrade to continue.",
				})
			case err != nil:
				return apierrors.Respond(c, err)
			}

			c.Set(KeyCompany, company)
			return next(c)
		}
	}
}

// RequirePermission rejects actors whose role lacks p.
func RequirePermission(p tenant.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFrom(c)
			if err != nil {
				return apierrors.Respond(c, err)
			}
			if err := actor.Require(p); err != nil {
				return apierrors.Respond(c, err)
			}
			return next(c)
		}
	}
}
