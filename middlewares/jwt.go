package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/speakcheck/apiv1/auth"
	"github.com/speakcheck/apiv1/models"
)

type contextKey string

const userContextKey contextKey = "authUser"

func GetTokenFromAuthorizationHeader(authHeader string) (string, error) {
	if len(authHeader) == 0 {
		return "", errors.New("Authorization header is required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) < 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("Authorization header must be of the form: Bearer <token>")
	}
	return parts[1], nil
}

// RequireUser verifies the bearer token, resolves the user, and stashes it
// in the request context. Anything short of a live, active user yields 401
// with a WWW-Authenticate hint.
func RequireUser(svc *auth.Service, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := GetTokenFromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		user, svcErr := svc.CurrentUser(r.Context(), token)
		if svcErr != nil {
			if svcErr.Code == auth.CODE_SERVER_ERROR {
				writeFailure(w, http.StatusInternalServerError, svcErr.Message)
				return
			}
			unauthorized(w, svcErr.Message)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		f(w, r.WithContext(ctx))
	}
}

// UserFromContext returns the user resolved by RequireUser, or nil when the
// handler was reached without it.
func UserFromContext(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeFailure(w, http.StatusUnauthorized, message)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
