package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
		reason   string
	}{
		{"empty", "", false, "Password is required"},
		{"too short", "short1!", false, "Password must be at least 8 characters"},
		{"too long", strings.Repeat("Aa1!", 33), false, "Password must be no more than 128 characters"},
		{"missing uppercase", "longenough1!", false, "Password must contain at least one uppercase letter"},
		{"missing lowercase", "LONGENOUGH1!", false, "Password must contain at least one lowercase letter"},
		{"missing digit", "LongEnough!", false, "Password must contain at least one digit"},
		{"missing special", "LongEnough1", false, "Password must contain at least one special character"},
		{"valid", "LongEnough1!", true, ""},
		// bounds count characters, not bytes
		{"multibyte too short", "Aa1!" + strings.Repeat("é", 3), false, "Password must be at least 8 characters"},
		{"multibyte at max", "Aa1!" + strings.Repeat("é", 124), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ValidatePasswordStrength(tt.password)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidateEmailFormat(t *testing.T) {
	tests := []struct {
		name  string
		email string
		ok    bool
	}{
		{"empty", "", false},
		{"too long", strings.Repeat("a", 250) + "@example.com", false},
		{"no at sign", "not-an-email", false},
		{"no dot in domain", "user@localhost", false},
		{"valid", "user@example.com", true},
		{"valid short", "a@b.co", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ValidateEmailFormat(tt.email)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	ok, reason := ValidateName("")
	assert.False(t, ok)
	assert.Equal(t, "Name is required", reason)

	ok, reason = ValidateName("A")
	assert.False(t, ok)
	assert.Equal(t, "Name must be at least 2 characters", reason)

	ok, _ = ValidateName(strings.Repeat("x", 101))
	assert.False(t, ok)

	// 60 characters even though 120 bytes
	ok, reason = ValidateName(strings.Repeat("é", 60))
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = ValidateName("Alice A")
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidateRegistrationOrder(t *testing.T) {
	// email is checked before name, name before password
	ok, reason := ValidateRegistration("bad-email", "x", "x", "A")
	assert.False(t, ok)
	assert.Equal(t, "Invalid email format", reason)

	ok, reason = ValidateRegistration("user@example.com", "x", "x", "A")
	assert.False(t, ok)
	assert.Equal(t, "Name must be at least 2 characters", reason)

	ok, reason = ValidateRegistration("user@example.com", "weak", "weak", "Alice A")
	assert.False(t, ok)
	assert.Equal(t, "Password must be at least 8 characters", reason)

	ok, reason = ValidateRegistration("user@example.com", "LongEnough1!", "Different1!", "Alice A")
	assert.False(t, ok)
	assert.Equal(t, "Passwords do not match", reason)

	ok, reason = ValidateRegistration("user@example.com", "LongEnough1!", "LongEnough1!", "Alice A")
	assert.True(t, ok)
	assert.Empty(t, reason)
}
