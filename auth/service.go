// Package auth holds the authentication service: credential checks, token
// issuance, and the session lifecycle rules. Handlers stay thin; everything
// with a business rule lives here.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/speakcheck/apiv1/models"
	"github.com/speakcheck/apiv1/utils"
)

// Store is the document-store surface the service needs. Implemented by
// dbhelper.Store (MongoDB) and dbhelper.MemoryStore (tests).
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, fields map[string]interface{}) (bool, error)
	UpdateLastLogin(ctx context.Context, userID string) error

	CreateSession(ctx context.Context, session *models.UserSession) error
	GetActiveSessionByToken(ctx context.Context, token string) (*models.UserSession, error)
	InvalidateSession(ctx context.Context, token string) (bool, error)
	InvalidateUserSessions(ctx context.Context, userID string) (int64, error)
	SweepSessions(ctx context.Context) (int64, error)

	CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error
	GetValidResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, token string) (bool, error)
	SweepResetTokens(ctx context.Context) (int64, error)
}

// Service carries only immutable configuration after construction and is
// safe to share across request handlers.
type Service struct {
	store                    Store
	jwtSecret                []byte
	sessionDuration          time.Duration
	resetTokenDuration       time.Duration
	verificationCodeDuration time.Duration
}

func NewService(store Store, jwtSecret []byte) *Service {
	return &Service{
		store:                    store,
		jwtSecret:                jwtSecret,
		sessionDuration:          models.SESSION_DURATION_DAYS * 24 * time.Hour,
		resetTokenDuration:       models.RESET_TOKEN_DURATION_HOURS * time.Hour,
		verificationCodeDuration: models.VERIFICATION_CODE_DURATION_MINUTES * time.Minute,
	}
}

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	UserID string
	Email  string
	Name   string
	Token  string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	UserID     string
	Email      string
	Name       string
	Token      string
	IsVerified bool
	LastLogin  *time.Time
}

// ProfileResult is the external projection of a User. It never includes
// the password hash.
type ProfileResult struct {
	UserID      string
	Email       string
	Name        string
	IsVerified  bool
	CreatedAt   time.Time
	LastLogin   *time.Time
	Preferences map[string]interface{}
	Profile     map[string]interface{}
}

// TokenStatus is the outcome of a token validation. Invalid tokens are a
// successful validation with Valid=false, not an error.
type TokenStatus struct {
	Valid     bool
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
	Message   string
}

// Register creates the user, mints a token, and opens the first session.
func (s *Service) Register(ctx context.Context, email, password, confirmPassword, name, userAgent, ip string) (*RegisterResult, *Error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if ok, reason := utils.ValidateRegistration(email, password, confirmPassword, name); !ok {
		return nil, validationError(reason)
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, serverError("Registration failed due to server error")
	}
	if existing != nil {
		return nil, fieldError(CODE_EMAIL_EXISTS, "Registration failed", "email", "Email address is already registered")
	}

	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, serverError("Registration failed due to server error")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
		Preferences:  map[string]interface{}{},
		Profile:      map[string]interface{}{},
	}
	userID, err := s.store.CreateUser(ctx, user)
	if err != nil {
		if err == utils.ErrDuplicateKey {
			// lost the race against a concurrent registration
			return nil, fieldError(CODE_EMAIL_EXISTS, "Registration failed", "email", "Email address is already registered")
		}
		return nil, serverError("Registration failed due to server error")
	}

	token, svcErr := s.openSession(ctx, userID, email, userAgent, ip)
	if svcErr != nil {
		return nil, svcErr
	}
	return &RegisterResult{UserID: userID, Email: email, Name: name, Token: token}, nil
}

// Login verifies credentials and opens a session. "No such user" and "wrong
// password" surface identically to resist account enumeration.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, *Error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, validationError("Email is required")
	}
	if password == "" {
		return nil, validationError("Password is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, serverError("Login failed due to server error")
	}
	if user == nil {
		return nil, fieldError(CODE_INVALID_CREDENTIALS, "Login failed", "general", "Invalid email or password")
	}
	if !user.IsActive {
		return nil, fieldError(CODE_ACCOUNT_DEACTIVATED, "Login failed", "general", "Account is deactivated")
	}
	if !utils.ComparePasswords(user.PasswordHash, password) {
		return nil, fieldError(CODE_INVALID_CREDENTIALS, "Login failed", "general", "Invalid email or password")
	}

	userID := user.ID.Hex()
	if err := s.store.UpdateLastLogin(ctx, userID); err != nil {
		return nil, serverError("Login failed due to server error")
	}
	now := time.Now().UTC()

	token, svcErr := s.openSession(ctx, userID, user.Email, userAgent, ip)
	if svcErr != nil {
		return nil, svcErr
	}
	return &LoginResult{
		UserID:     userID,
		Email:      user.Email,
		Name:       user.Name,
		Token:      token,
		IsVerified: user.IsVerified,
		LastLogin:  &now,
	}, nil
}

// openSession mints the bearer token and persists the matching session
// record. The session row stores the minted token itself, which is what
// makes logout-by-token and session-revocation checks possible.
func (s *Service) openSession(ctx context.Context, userID, email, userAgent, ip string) (string, *Error) {
	token, err := utils.CreateJWTToken(userID, email, s.jwtSecret, s.sessionDuration)
	if err != nil {
		return "", serverError("Could not issue session token")
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", serverError("Could not issue session token")
	}
	now := time.Now().UTC()
	session := &models.UserSession{
		UserID:    oid,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
		IsActive:  true,
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", serverError("Could not issue session token")
	}
	return token, nil
}

// CurrentUser resolves the bearer token into an active user. Validity is
// decided by signature and expiry alone; "missing" and "deactivated" are
// deliberately indistinguishable to the caller.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, *Error) {
	claims, err := utils.VerifyJWTToken(token, s.jwtSecret)
	if err != nil {
		return nil, &Error{Code: CODE_UNAUTHORIZED, Message: err.Error()}
	}
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, serverError("Authentication failed due to server error")
	}
	if user == nil || !user.IsActive {
		return nil, &Error{Code: CODE_UNAUTHORIZED, Message: "User not found or inactive"}
	}
	return user, nil
}

// Logout deactivates one session or, with logoutAll, every session the user
// holds. It is idempotent: an already-invalid token yields a zero count,
// not an error.
func (s *Service) Logout(ctx context.Context, user *models.User, token string, logoutAll bool) (int64, *Error) {
	if logoutAll {
		n, err := s.store.InvalidateUserSessions(ctx, user.ID.Hex())
		if err != nil {
			return 0, serverError("Logout failed due to server error")
		}
		return n, nil
	}
	changed, err := s.store.InvalidateSession(ctx, token)
	if err != nil {
		return 0, serverError("Logout failed due to server error")
	}
	if changed {
		return 1, nil
	}
	return 0, nil
}

// ValidateToken reports whether a token would be accepted right now. On top
// of the signature and user checks it requires a live session record, so
// tokens revoked by logout stop validating immediately.
func (s *Service) ValidateToken(ctx context.Context, token string) (*TokenStatus, *Error) {
	claims, err := utils.VerifyJWTToken(token, s.jwtSecret)
	if err != nil {
		return &TokenStatus{Valid: false, Message: "Token is invalid or expired"}, nil
	}
	session, err := s.store.GetActiveSessionByToken(ctx, token)
	if err != nil {
		return nil, serverError("Token validation failed due to server error")
	}
	if session == nil {
		return &TokenStatus{Valid: false, Message: "Token is invalid or expired"}, nil
	}
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, serverError("Token validation failed due to server error")
	}
	if user == nil || !user.IsActive {
		return &TokenStatus{Valid: false, Message: "User not found or inactive"}, nil
	}
	return &TokenStatus{
		Valid:     true,
		UserID:    user.ID.Hex(),
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: claims.ExpiresAt,
		Message:   "Token is valid",
	}, nil
}

// Profile projects the user record for external consumption.
func (s *Service) Profile(user *models.User) *ProfileResult {
	return &ProfileResult{
		UserID:      user.ID.Hex(),
		Email:       user.Email,
		Name:        user.Name,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt,
		LastLogin:   user.LastLogin,
		Preferences: user.Preferences,
		Profile:     user.Profile,
	}
}

// UpdateProfile applies a partial patch limited to name, preferences, and
// profile, then echoes the freshly reloaded record.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, name *string, preferences, profile map[string]interface{}) (*ProfileResult, *Error) {
	if name == nil && preferences == nil && profile == nil {
		return nil, validationError("At least one field must be provided for update")
	}
	fields := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if ok, reason := utils.ValidateName(trimmed); !ok {
			return nil, validationError(reason)
		}
		fields["name"] = trimmed
	}
	if preferences != nil {
		fields["preferences"] = preferences
	}
	if profile != nil {
		fields["profile"] = profile
	}

	userID := user.ID.Hex()
	ok, err := s.store.UpdateUser(ctx, userID, fields)
	if err != nil {
		return nil, serverError("Failed to update profile due to server error")
	}
	if !ok {
		return nil, &Error{Code: CODE_UPDATE_FAILED, Message: "Failed to update profile"}
	}

	updated, err := s.store.GetUserByID(ctx, userID)
	if err != nil || updated == nil {
		return nil, &Error{Code: CODE_RETRIEVAL_FAILED, Message: "Failed to retrieve updated profile"}
	}
	return s.Profile(updated), nil
}

// RequestPasswordReset issues a single-use reset token. It returns an empty
// token without error when the email is unknown or the account deactivated;
// callers must report the same success either way so the endpoint cannot be
// used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, *Error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if ok, reason := utils.ValidateEmailFormat(email); !ok {
		return "", validationError(reason)
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", serverError("Password reset request failed due to server error")
	}
	if user == nil || !user.IsActive {
		return "", nil
	}
	token, err := utils.GenerateSecureToken()
	if err != nil {
		return "", serverError("Password reset request failed due to server error")
	}
	now := time.Now().UTC()
	reset := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTokenDuration),
	}
	if err := s.store.CreateResetToken(ctx, reset); err != nil {
		return "", serverError("Password reset request failed due to server error")
	}
	return token, nil
}

// ResetPassword consumes a reset token, stores the new password, and
// invalidates every live session of the user so a stolen credential cannot
// outlive the reset.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) *Error {
	if token == "" {
		return validationError("Reset token is required")
	}
	reset, err := s.store.GetValidResetToken(ctx, token)
	if err != nil {
		return serverError("Password reset failed due to server error")
	}
	if reset == nil {
		return &Error{Code: CODE_INVALID_RESET_TOKEN, Message: "Invalid or expired reset token"}
	}
	if ok, reason := utils.ValidatePasswordStrength(newPassword); !ok {
		return validationError(reason)
	}
	if newPassword != confirmPassword {
		return validationError("Passwords do not match")
	}
	passwordHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return serverError("Password reset failed due to server error")
	}
	userID := reset.UserID.Hex()
	ok, err := s.store.UpdateUser(ctx, userID, map[string]interface{}{"password_hash": passwordHash})
	if err != nil || !ok {
		return serverError("Password reset failed due to server error")
	}
	if _, err := s.store.MarkResetTokenUsed(ctx, token); err != nil {
		return serverError("Password reset failed due to server error")
	}
	if _, err := s.store.InvalidateUserSessions(ctx, userID); err != nil {
		return serverError("Password reset failed due to server error")
	}
	return nil
}

// RequestEmailVerification stores a fresh short-lived verification code on
// the user and returns it for delivery.
func (s *Service) RequestEmailVerification(ctx context.Context, user *models.User) (string, *Error) {
	if user.IsVerified {
		return "", validationError("Email is already verified")
	}
	code := utils.GetVerificationCode()
	ok, err := s.store.UpdateUser(ctx, user.ID.Hex(), map[string]interface{}{
		"verification_code":            code,
		"verification_code_expires_at": time.Now().UTC().Add(s.verificationCodeDuration),
	})
	if err != nil || !ok {
		return "", serverError("Verification request failed due to server error")
	}
	return code, nil
}

// VerifyEmail consumes the stored verification code and marks the user
// verified.
func (s *Service) VerifyEmail(ctx context.Context, user *models.User, code string) *Error {
	if code == "" {
		return validationError("Verification code is required")
	}
	stored := user.VerificationCode
	expiry := user.VerificationCodeExpiresAt
	if stored == "" || expiry == nil || !time.Now().Before(*expiry) ||
		subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return &Error{Code: CODE_INVALID_VERIFICATION_CODE, Message: "Invalid or expired verification code"}
	}
	ok, err := s.store.UpdateUser(ctx, user.ID.Hex(), map[string]interface{}{
		"is_verified":                  true,
		"verification_code":            "",
		"verification_code_expires_at": nil,
	})
	if err != nil || !ok {
		return serverError("Email verification failed due to server error")
	}
	return nil
}

// Sweep removes sessions and reset tokens whose lifetime has ended. Safe to
// run concurrently with live traffic.
func (s *Service) Sweep(ctx context.Context) (sessions, resets int64, err error) {
	sessions, err = s.store.SweepSessions(ctx)
	if err != nil {
		return sessions, 0, err
	}
	resets, err = s.store.SweepResetTokens(ctx)
	return sessions, resets, err
}
