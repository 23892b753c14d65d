package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockclash/blockclash-backend/common"
	"github.com/blockclash/blockclash-backend/middleware"
	"github.com/blockclash/blockclash-backend/models"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := issueSessionToken(models.User{ID: 42, Username: "alice"}, "exp1")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "exp1", claims.ExperienceID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := issueSessionToken(models.User{ID: 1, Username: "bob"}, "exp1")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTMiddlewarePassesClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := issueSessionToken(models.User{ID: 7, Username: "carol"}, "exp1")
	require.NoError(t, err)

	var got *models.SessionClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(common.AuthInfoKey).(*models.SessionClaims)
	})

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	middleware.JWTValidationMiddleware(next).ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, "7", got.UserID)
	assert.Equal(t, "carol", got.Username)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rec := httptest.NewRecorder()
	middleware.JWTValidationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
