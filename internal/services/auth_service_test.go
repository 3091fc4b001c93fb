package services_test

import (
	"fmt"
	"testing"
	"time"

	"printshop/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func newTestAuthService(t *testing.T) *services.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return services.NewAuthService(string(hash), testJWTSecret)
}

func TestAuthService_Enabled(t *testing.T) {
	assert.False(t, services.NewAuthService("", "").Enabled())
	assert.False(t, services.NewAuthService("hash", "").Enabled())
	assert.True(t, newTestAuthService(t).Enabled())
}

func TestAuthService_LoginOperator(t *testing.T) {
	authService := newTestAuthService(t)

	token, err := authService.LoginOperator("operator-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "operator", claims["role"])

	// Wrong password
	_, err = authService.LoginOperator("wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Disabled service never issues tokens
	_, err = services.NewAuthService("", "").LoginOperator("operator-pass")
	assert.Error(t, err)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newTestAuthService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "operator",
		"exp":  jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "operator", claims["role"])

	// Garbage token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "operator",
		"exp":  jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Signed correctly but without the operator role
	customerToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "customer",
		"exp":  jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	customerTokenString, _ := customerToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(customerTokenString)
	assert.Error(t, err)
}
