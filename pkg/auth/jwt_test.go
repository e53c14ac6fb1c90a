package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-minimum-32-characters-long"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(Identity{UserID: 123, CompanyID: 7, Email: "ana@acme.test", Role: "sales-rep"}, secret, 24)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(123), claims.UserID)
	assert.Equal(t, int64(7), claims.CompanyID)
	assert.Equal(t, "ana@acme.test", claims.Email)
	assert.Equal(t, "sales-rep", claims.Role)
}

func TestValidateJWT_Invalid(t *testing.T) {
	_, err := ValidateJWT("invalid.token.here", secret)
	assert.Error(t, err)

	_, err = ValidateJWT("", secret)
	assert.Error(t, err)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(Identity{UserID: 1, CompanyID: 1}, secret, 24)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "another-secret-key-minimum-32-characters")
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(Identity{UserID: 1, CompanyID: 1}, secret, -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateJWT_MissingCompany(t *testing.T) {
	claims := &Claims{
		UserID: 5,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = ValidateJWT(token, secret)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: 1, CompanyID: 1}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateJWT(token, secret)
	assert.Error(t, err)
}
