package middleware

import (
	"net/http"
	"strings"

	"github.com/jordanlanch/dealpipe/pkg/auth"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTMiddleware.
const (
	KeyUserID    = "user_id"
	KeyCompanyID = "company_id"
	KeyRole      = "role"
	KeyEmail     = "user_email"
	KeyCompany   = "company"
)

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}

			claims, err := auth.ValidateJWT(parts[1], secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is invalid or expired",
				})
			}

			if !tenant.Role(claims.Role).Valid() {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token carries an unknown role",
				})
			}

			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyCompanyID, claims.CompanyID)
			c.Set(KeyRole, claims.Role)
			c.Set(KeyEmail, claims.Email)

			return next(c)
		}
	}
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c echo.Context) (tenant.Actor, error) {
	userID, ok := c.Get(KeyUserID).(int64)
	if !ok || userID == 0 {
		return tenant.Actor{}, domain.NewUnauthorizedError()
	}
	companyID, ok := c.Get(KeyCompanyID).(int64)
	if !ok || companyID == 0 {
		return tenant.Actor{}, domain.NewUnauthorizedError()
	}
	role, _ := c.Get(KeyRole).(string)

	return tenant.Actor{UserID: userID, CompanyID: companyID, Role: tenant.Role(role)}, nil
}
