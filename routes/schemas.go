package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/speakcheck/apiv1/auth"
)

type RegisterAttempt struct {
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Name            string `json:"name" validate:"required"`
}

type LoginAttempt struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

type LogoutAttempt struct {
	Token     string `json:"token" validate:"required"`
	LogoutAll bool   `json:"logout_all"`
}

type ProfileUpdateAttempt struct {
	Name        *string                `json:"name"`
	Preferences map[string]interface{} `json:"preferences"`
	Profile     map[string]interface{} `json:"profile"`
}

type TokenValidationAttempt struct {
	Token string `json:"token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type PasswordResetAttempt struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type VerifyEmailAttempt struct {
	Code string `json:"code" validate:"required"`
}

type RequestBody interface {
	RegisterAttempt | LoginAttempt | LogoutAttempt | ProfileUpdateAttempt |
		TokenValidationAttempt | PasswordResetRequest | PasswordResetAttempt |
		VerifyEmailAttempt
}

// Every response carries success, message, and timestamp. Service-level
// failures keep HTTP 200 and flag success:false; the error_code tells
// clients apart what went wrong.

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteSuccess merges data into the uniform success envelope.
func WriteSuccess(w http.ResponseWriter, message string, data map[string]interface{}) {
	body := map[string]interface{}{
		"success":   true,
		"message":   message,
		"timestamp": timestamp(),
	}
	for k, v := range data {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// WriteError emits the uniform error envelope.
func WriteError(w http.ResponseWriter, code auth.ErrorCode, message string, errors map[string]string) {
	body := map[string]interface{}{
		"success":   false,
		"message":   message,
		"timestamp": timestamp(),
	}
	if code != "" {
		body["error_code"] = string(code)
	}
	if errors != nil {
		body["errors"] = errors
	}
	writeJSON(w, http.StatusOK, body)
}

func WriteValidationError(w http.ResponseWriter, errors map[string]string) {
	WriteError(w, auth.CODE_VALIDATION_ERROR, "Validation failed", errors)
}

// WriteServiceError maps a service failure onto the envelope.
func WriteServiceError(w http.ResponseWriter, e *auth.Error) {
	WriteError(w, e.Code, e.Message, e.Errors)
}
