package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authTestHandler(t *testing.T, wantUserID, wantName string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantUserID, UserIDFromContext(r.Context()))
		assert.Equal(t, wantName, UserNameFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	validate := func(token string) (*Claims, error) {
		assert.Equal(t, "good-token", token)
		return &Claims{UserID: "user-1", Name: "Maria"}, nil
	}

	handler := Auth(validate)(authTestHandler(t, "user-1", "Maria"))

	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler := Auth(func(string) (*Claims, error) {
		t.Fatal("validator should not be called")
		return nil, nil
	})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_MalformedHeader(t *testing.T) {
	handler := Auth(func(string) (*Claims, error) {
		t.Fatal("validator should not be called")
		return nil, nil
	})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := Auth(func(string) (*Claims, error) {
		return nil, fmt.Errorf("expired")
	})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserIDFromContext(req.Context()))
	assert.Equal(t, "", UserNameFromContext(req.Context()))
}
