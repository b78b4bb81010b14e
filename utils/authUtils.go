package utils

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/xlzd/gotp"
	"golang.org/x/crypto/bcrypt"

	"github.com/speakcheck/apiv1/models"
)

var secretLength int = 16
var totp *gotp.TOTP = gotp.NewDefaultTOTP(gotp.RandomSecret(secretLength))

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(hashInput(password), HASH_ROUNDS)
	return string(bytes), err
}

// ComparePasswords reports whether password matches the stored hash.
// A malformed stored hash is treated as a mismatch, never an error.
func ComparePasswords(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), hashInput(password)) == nil
}

// hashInput caps the password at bcrypt's input limit. Hashing and
// comparison both go through here, so a password near the policy maximum
// hashes and verifies the same way.
func hashInput(password string) []byte {
	b := []byte(password)
	if len(b) > HASH_INPUT_LIMIT {
		b = b[:HASH_INPUT_LIMIT]
	}
	return b
}

// TokenClaims is the decoded claim set of a verified access token.
type TokenClaims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CreateJWTToken mints an HS256 access token for the user. The jti claim
// keeps tokens minted within the same second distinct, so a session row
// keyed on the token string never collides.
func CreateJWTToken(userID, email string, signingKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	jti, err := GenerateSecureToken()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"iat":     now.Unix(),
		"exp":     now.Add(validity).Unix(),
		"jti":     jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// VerifyJWTToken checks signature and expiry. It never panics on garbage
// input: the result is either claims, ErrTokenExpired, or ErrTokenInvalid.
func VerifyJWTToken(tokenString string, signingKey []byte) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return signingKey, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	if userID == "" {
		return nil, ErrTokenInvalid
	}
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	return &TokenClaims{
		UserID:    userID,
		Email:     email,
		IssuedAt:  time.Unix(int64(iat), 0).UTC(),
		ExpiresAt: time.Unix(int64(exp), 0).UTC(),
	}, nil
}

// GenerateSecureToken returns a cryptographically random URL-safe string,
// used for password reset tokens and jti claims.
func GenerateSecureToken() (string, error) {
	b := make([]byte, models.TOKEN_LENGTH)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GetVerificationCode returns a short numeric code for email verification.
func GetVerificationCode() string {
	return totp.Now()
}
