package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/dealpipe/pkg/auth"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-minimum-32-characters-long"

type authorizerFunc func(ctx context.Context, companyID int64) (*tenant.Company, error)

func (f authorizerFunc) Authorize(ctx context.Context, companyID int64) (*tenant.Company, error) {
	return f(ctx, companyID)
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(auth.Identity{UserID: 4, CompanyID: 9, Email: "ana@acme.test", Role: role}, secret, 1)
	require.NoError(t, err)
	return tok
}

func serve(mw []echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, tenant.Actor) {
	e := echo.New()
	var seen tenant.Actor
	e.GET("/probe", func(c echo.Context) error {
		seen, _ = ActorFrom(c)
		return c.NoContent(http.StatusNoContent)
	}, mw...)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestJWTMiddleware(t *testing.T) {
	jwt := []echo.MiddlewareFunc{JWTMiddleware(secret)}

	t.Run("valid token", func(t *testing.T) {
		rec, actor := serve(jwt, "Bearer "+token(t, "sales-rep"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, tenant.Actor{UserID: 4, CompanyID: 9, Role: tenant.RoleSalesRep}, actor)
	})

	t.Run("missing header", func(t *testing.T) {
		rec, _ := serve(jwt, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing_token", errorCode(t, rec))
	})

	t.Run("bad format", func(t *testing.T) {
		rec, _ := serve(jwt, "Token abc")
		assert.Equal(t, "invalid_token_format", errorCode(t, rec))
	})

	t.Run("bad signature", func(t *testing.T) {
		rec, _ := serve(jwt, "Bearer "+token(t, "admin")+"x")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", errorCode(t, rec))
	})

	t.Run("unknown role", func(t *testing.T) {
		rec, _ := serve(jwt, "Bearer "+token(t, "superuser"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTenantMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"active", nil, http.StatusNoContent, ""},
		{"suspended", tenant.ErrCompanySuspended, http.StatusForbidden, "company_suspended"},
		{"trial expired", tenant.ErrTrialExpired, http.StatusPaymentRequired, "trial_expired"},
		{"unknown company", domain.NewNotFoundError("company"), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asked int64
			companies := authorizerFunc(func(_ context.Context, id int64) (*tenant.Company, error) {
				asked = id
				return &tenant.Company{ID: id, IsActive: true}, tt.err
			})

			rec, _ := serve([]echo.MiddlewareFunc{JWTMiddleware(secret), TenantMiddleware(companies)}, "Bearer "+token(t, "admin"))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, int64(9), asked)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorCode(t, rec))
			}
		})
	}
}

func TestTenantMiddleware_RequiresActor(t *testing.T) {
	called := false
	companies := authorizerFunc(func(context.Context, int64) (*tenant.Company, error) {
		called = true
		return nil, nil
	})
	rec, _ := serve([]echo.MiddlewareFunc{TenantMiddleware(companies)}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequirePermission(t *testing.T) {
	guard := func(p tenant.Permission) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{JWTMiddleware(secret), RequirePermission(p)}
	}

	rec, _ := serve(guard(tenant.PermOpportunitiesDelete), "Bearer "+token(t, "admin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = serve(guard(tenant.PermOpportunitiesDelete), "Bearer "+token(t, "sales-rep"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(guard(tenant.PermOpportunitiesCreate), "Bearer "+token(t, "read-only"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(guard(tenant.PermOpportunitiesView), "Bearer "+token(t, "read-only"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
