package utils

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/speakcheck/apiv1/models"
)

// ValidatePasswordStrength checks length and character-class rules and
// reports the first failing rule only, so error messages stay deterministic.
func ValidatePasswordStrength(password string) (bool, string) {
	if password == "" {
		return false, "Password is required"
	}
	// length bounds count characters, not bytes
	length := utf8.RuneCountInString(password)
	if length < models.PASSWORD_MIN_LENGTH {
		return false, fmt.Sprintf("Password must be at least %d characters", models.PASSWORD_MIN_LENGTH)
	}
	if length > models.PASSWORD_MAX_LENGTH {
		return false, fmt.Sprintf("Password must be no more than %d characters", models.PASSWORD_MAX_LENGTH)
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune(SPECIAL_CHARS, c):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one digit"
	}
	if !hasSpecial {
		return false, "Password must contain at least one special character"
	}
	return true, ""
}

// ValidateEmailFormat checks syntactic validity only; deliverability is not
// this subsystem's problem. The domain must contain a dot.
func ValidateEmailFormat(email string) (bool, string) {
	if email == "" {
		return false, "Email is required"
	}
	if utf8.RuneCountInString(email) > models.EMAIL_MAX_LENGTH {
		return false, fmt.Sprintf("Email must be no more than %d characters", models.EMAIL_MAX_LENGTH)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false, "Invalid email format"
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return false, "Invalid email format"
	}
	return true, ""
}

func ValidateName(name string) (bool, string) {
	if name == "" {
		return false, "Name is required"
	}
	name = strings.TrimSpace(name)
	length := utf8.RuneCountInString(name)
	if length < models.NAME_MIN_LENGTH {
		return false, fmt.Sprintf("Name must be at least %d characters", models.NAME_MIN_LENGTH)
	}
	if length > models.NAME_MAX_LENGTH {
		return false, fmt.Sprintf("Name must be no more than %d characters", models.NAME_MAX_LENGTH)
	}
	return true, ""
}

// ValidateRegistration runs email, name, password checks in that order and
// then the confirmation match, returning the first failure found.
func ValidateRegistration(email, password, confirmPassword, name string) (bool, string) {
	if ok, msg := ValidateEmailFormat(email); !ok {
		return false, msg
	}
	if ok, msg := ValidateName(name); !ok {
		return false, msg
	}
	if ok, msg := ValidatePasswordStrength(password); !ok {
		return false, msg
	}
	if password != confirmPassword {
		return false, "Passwords do not match"
	}
	return true, ""
}
