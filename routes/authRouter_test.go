package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakcheck/apiv1/auth"
	"github.com/speakcheck/apiv1/dbhelper"
	"github.com/speakcheck/apiv1/routes"
)

func setup() (*mux.Router, *auth.Service) {
	store := dbhelper.NewMemoryStore()
	svc := auth.NewService(store, []byte("test-signing-secret"))
	r := mux.NewRouter()
	r.StrictSlash(true)
	routes.CreateRoutes(r, svc)
	return r, svc
}

func doRequest(t *testing.T, r *mux.Router, method, path string, body interface{}, bearer string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func registerAlice(t *testing.T, r *mux.Router) string {
	t.Helper()
	rec, body := doRequest(t, r, "POST", "/api/auth/register", map[string]interface{}{
		"email":            "alice@example.com",
		"password":         "StrongPass1!",
		"confirm_password": "StrongPass1!",
		"name":             "Alice A",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterThenProfile(t *testing.T) {
	r, _ := setup()
	token := registerAlice(t, r)

	rec, body := doRequest(t, r, "GET", "/api/auth/profile", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "Alice A", body["name"])
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterValidationEnvelope(t *testing.T) {
	r, _ := setup()
	rec, body := doRequest(t, r, "POST", "/api/auth/register", map[string]interface{}{
		"email":            "alice@example.com",
		"password":         "longenough1!",
		"confirm_password": "longenough1!",
		"name":             "Alice A",
	}, "")
	// service failures keep HTTP 200; the envelope carries the outcome
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	errors, _ := body["errors"].(map[string]interface{})
	require.NotNil(t, errors)
	assert.Equal(t, "Password must contain at least one uppercase letter", errors["general"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := setup()
	registerAlice(t, r)

	rec, body := doRequest(t, r, "POST", "/api/auth/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "WrongPass1!",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_CREDENTIALS", body["error_code"])
}

func TestLogoutFlowAndTokenValidation(t *testing.T) {
	r, _ := setup()
	token := registerAlice(t, r)

	rec, body := doRequest(t, r, "POST", "/api/auth/logout", map[string]interface{}{
		"token": token,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["sessions_invalidated"])

	// idempotent: repeating the call reports zero without failing
	rec, body = doRequest(t, r, "POST", "/api/auth/logout", map[string]interface{}{
		"token": token,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["sessions_invalidated"])

	rec, body = doRequest(t, r, "POST", "/api/auth/validate-token", map[string]interface{}{
		"token": token,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["valid"])
}

func TestValidateTokenSuccess(t *testing.T) {
	r, _ := setup()
	token := registerAlice(t, r)

	rec, body := doRequest(t, r, "POST", "/api/auth/validate-token", map[string]interface{}{
		"token": token,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestProfileUpdate(t *testing.T) {
	r, _ := setup()
	token := registerAlice(t, r)

	rec, body := doRequest(t, r, "PUT", "/api/auth/profile", map[string]interface{}{
		"name":        "Alice Anderson",
		"preferences": map[string]interface{}{"target_level": "B2"},
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Alice Anderson", body["name"])
	prefs, _ := body["preferences"].(map[string]interface{})
	require.NotNil(t, prefs)
	assert.Equal(t, "B2", prefs["target_level"])

	// empty patch is rejected
	rec, body = doRequest(t, r, "PUT", "/api/auth/profile", map[string]interface{}{}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
}

func TestUnauthorizedRequests(t *testing.T) {
	r, _ := setup()

	rec, body := doRequest(t, r, "GET", "/api/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, false, body["success"])

	rec, body = doRequest(t, r, "GET", "/api/auth/profile", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestResetPasswordEndpoint(t *testing.T) {
	r, svc := setup()
	registerAlice(t, r)

	rec, body := doRequest(t, r, "POST", "/api/auth/request-password-reset", map[string]interface{}{
		"email": "alice@example.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	// identical envelope for an unknown email
	rec, unknown := doRequest(t, r, "POST", "/api/auth/request-password-reset", map[string]interface{}{
		"email": "nobody@example.com",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body["message"], unknown["message"])

	// the token travels by mail, so fetch one straight from the service
	resetToken, svcErr := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	require.Nil(t, svcErr)
	require.NotEmpty(t, resetToken)

	rec, body = doRequest(t, r, "POST", "/api/auth/reset-password", map[string]interface{}{
		"token":            resetToken,
		"new_password":     "NewStrong1!",
		"confirm_password": "NewStrong1!",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	// single use
	rec, body = doRequest(t, r, "POST", "/api/auth/reset-password", map[string]interface{}{
		"token":            resetToken,
		"new_password":     "OtherStrong1!",
		"confirm_password": "OtherStrong1!",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_RESET_TOKEN", body["error_code"])
}

func TestRegisterRateLimited(t *testing.T) {
	r, _ := setup()
	for i := 0; i < 3; i++ {
		rec, _ := doRequest(t, r, "POST", "/api/auth/register", map[string]interface{}{
			"email":            fmt.Sprintf("user%d@example.com", i),
			"password":         "StrongPass1!",
			"confirm_password": "StrongPass1!",
			"name":             "User Name",
		}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := doRequest(t, r, "POST", "/api/auth/register", map[string]interface{}{
		"email":            "user3@example.com",
		"password":         "StrongPass1!",
		"confirm_password": "StrongPass1!",
		"name":             "User Name",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealth(t *testing.T) {
	r, _ := setup()
	rec, body := doRequest(t, r, "GET", "/api/auth/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "auth-api", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}
