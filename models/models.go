package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the root identity record. The password hash never leaves the
// backend; response shaping happens in the routes package.
type User struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty"`
	Email        string                 `bson:"email"`
	PasswordHash string                 `bson:"password_hash"`
	Name         string                 `bson:"name"`
	CreatedAt    time.Time              `bson:"created_at"`
	UpdatedAt    *time.Time             `bson:"updated_at,omitempty"`
	LastLogin    *time.Time             `bson:"last_login,omitempty"`
	IsVerified   bool                   `bson:"is_verified"`
	IsActive     bool                   `bson:"is_active"`
	Preferences  map[string]interface{} `bson:"preferences"`
	Profile      map[string]interface{} `bson:"profile"`

	// Email verification code, set on request and cleared once consumed.
	VerificationCode          string     `bson:"verification_code,omitempty"`
	VerificationCodeExpiresAt *time.Time `bson:"verification_code_expires_at,omitempty"`
}

// UserSession is one bearer-token grant. A user holds one session per
// login/device; a session is valid iff IsActive and not yet expired.
type UserSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Token     string             `bson:"token"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
	IsActive  bool               `bson:"is_active"`
	UserAgent string             `bson:"user_agent,omitempty"`
	IPAddress string             `bson:"ip_address,omitempty"`
}

// PasswordResetToken is a single-use recovery grant. Once Used is set it
// never validates again, expired or not.
type PasswordResetToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Token     string             `bson:"token"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
	Used      bool               `bson:"used"`
}

// Collection names
const USER_COLLECTION = "users"
const USER_SESSION_COLLECTION = "user_sessions"
const PASSWORD_RESET_COLLECTION = "password_reset_tokens"

// Validation constants
const PASSWORD_MIN_LENGTH = 8
const PASSWORD_MAX_LENGTH = 128
const NAME_MIN_LENGTH = 2
const NAME_MAX_LENGTH = 100
const EMAIL_MAX_LENGTH = 255
const TOKEN_LENGTH = 32

// Lifetimes
const SESSION_DURATION_DAYS = 30
const RESET_TOKEN_DURATION_HOURS = 24
const VERIFICATION_CODE_DURATION_MINUTES = 15
