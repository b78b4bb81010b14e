package routes

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/speakcheck/apiv1/auth"
	"github.com/speakcheck/apiv1/middlewares"
	"github.com/speakcheck/apiv1/utils"
)

// Handler carries the injected auth service; no package-level service state.
type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func DecodeValidBody[B RequestBody](r *http.Request) (B, error) {
	decoder := json.NewDecoder(r.Body)
	var requestBody B
	err := decoder.Decode(&requestBody)
	if err != nil {
		return requestBody, err
	}
	err = validate.Struct(requestBody)
	if err != nil {
		return requestBody, err
	}
	return requestBody, nil
}

// GetClientInfo extracts user agent and IP, preferring reverse-proxy headers.
func GetClientInfo(r *http.Request) (userAgent, ip string) {
	userAgent = r.Header.Get("User-Agent")
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if real := r.Header.Get("X-Real-Ip"); real != "" {
		ip = real
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}
	return userAgent, ip
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[RegisterAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "All fields are required"})
		return
	}
	userAgent, ip := GetClientInfo(r)
	result, svcErr := h.svc.Register(r.Context(), attempt.Email, attempt.Password, attempt.ConfirmPassword, attempt.Name, userAgent, ip)
	if svcErr != nil {
		log.Printf("registration failed: %v", svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Printf("user registered: %s (ID: %s)", result.Email, result.UserID)
	WriteSuccess(w, "User registered successfully", map[string]interface{}{
		"user_id": result.UserID,
		"email":   result.Email,
		"name":    result.Name,
		"token":   result.Token,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[LoginAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Email and password are required"})
		return
	}
	userAgent, ip := GetClientInfo(r)
	result, svcErr := h.svc.Login(r.Context(), attempt.Email, attempt.Password, userAgent, ip)
	if svcErr != nil {
		log.Printf("login failed for %q: %v", attempt.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Printf("user logged in: %s (ID: %s)", result.Email, result.UserID)
	WriteSuccess(w, "Login successful", map[string]interface{}{
		"user_id":     result.UserID,
		"email":       result.Email,
		"name":        result.Name,
		"token":       result.Token,
		"is_verified": result.IsVerified,
		"last_login":  isoTimePtr(result.LastLogin),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[LogoutAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Token is required"})
		return
	}
	user := middlewares.UserFromContext(r)
	count, svcErr := h.svc.Logout(r.Context(), user, attempt.Token, attempt.LogoutAll)
	if svcErr != nil {
		log.Printf("logout failed for %s: %v", user.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Printf("user logged out: %s, sessions invalidated: %d", user.Email, count)
	WriteSuccess(w, "Logout successful", map[string]interface{}{
		"sessions_invalidated": count,
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := middlewares.UserFromContext(r)
	profile := h.svc.Profile(user)
	WriteSuccess(w, "Profile retrieved successfully", profileData(profile))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[ProfileUpdateAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Invalid request body"})
		return
	}
	user := middlewares.UserFromContext(r)
	profile, svcErr := h.svc.UpdateProfile(r.Context(), user, attempt.Name, attempt.Preferences, attempt.Profile)
	if svcErr != nil {
		log.Printf("profile update failed for %s: %v", user.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Printf("profile updated: %s (ID: %s)", profile.Email, profile.UserID)
	WriteSuccess(w, "Profile updated successfully", profileData(profile))
}

func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[TokenValidationAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Token is required"})
		return
	}
	status, svcErr := h.svc.ValidateToken(r.Context(), attempt.Token)
	if svcErr != nil {
		log.Printf("token validation failed: %v", svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	data := map[string]interface{}{"valid": status.Valid}
	if status.Valid {
		data["user_id"] = status.UserID
		data["email"] = status.Email
		data["name"] = status.Name
		data["expires_at"] = status.ExpiresAt.Format(time.RFC3339)
	}
	WriteSuccess(w, status.Message, data)
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[PasswordResetRequest](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Email is required"})
		return
	}
	token, svcErr := h.svc.RequestPasswordReset(r.Context(), attempt.Email)
	if svcErr != nil {
		log.Printf("password reset request failed for %q: %v", attempt.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	if token != "" {
		// token is handed to the mail delivery flow, never to the client
		log.Printf("password reset token issued for %s", attempt.Email)
	}
	WriteSuccess(w, utils.GENERIC_RESET_REQUEST_MESSAGE, nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[PasswordResetAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Token and new password are required"})
		return
	}
	if svcErr := h.svc.ResetPassword(r.Context(), attempt.Token, attempt.NewPassword, attempt.ConfirmPassword); svcErr != nil {
		log.Printf("password reset failed: %v", svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Println("password reset completed, all sessions invalidated")
	WriteSuccess(w, "Password reset successful", nil)
}

func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	user := middlewares.UserFromContext(r)
	_, svcErr := h.svc.RequestEmailVerification(r.Context(), user)
	if svcErr != nil {
		log.Printf("verification request failed for %s: %v", user.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	// the code rides the mail delivery flow, same as reset tokens
	log.Printf("verification code issued for %s", user.Email)
	WriteSuccess(w, "Verification code sent", nil)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	attempt, err := DecodeValidBody[VerifyEmailAttempt](r)
	if err != nil {
		WriteValidationError(w, map[string]string{"general": "Verification code is required"})
		return
	}
	user := middlewares.UserFromContext(r)
	if svcErr := h.svc.VerifyEmail(r.Context(), user, attempt.Code); svcErr != nil {
		log.Printf("email verification failed for %s: %v", user.Email, svcErr)
		WriteServiceError(w, svcErr)
		return
	}
	log.Printf("email verified: %s", user.Email)
	WriteSuccess(w, "Email verified successfully", nil)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, "Authentication API is healthy", map[string]interface{}{
		"status":  "healthy",
		"service": "auth-api",
	})
}

func profileData(p *auth.ProfileResult) map[string]interface{} {
	return map[string]interface{}{
		"user_id":     p.UserID,
		"email":       p.Email,
		"name":        p.Name,
		"is_verified": p.IsVerified,
		"created_at":  p.CreatedAt.Format(time.RFC3339),
		"last_login":  isoTimePtr(p.LastLogin),
		"preferences": p.Preferences,
		"profile":     p.Profile,
	}
}

func isoTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
