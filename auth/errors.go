package auth

// ErrorCode identifies a service failure to the API boundary, which alone
// decides how each code is surfaced to clients.
type ErrorCode string

const (
	CODE_VALIDATION_ERROR          ErrorCode = "VALIDATION_ERROR"
	CODE_EMAIL_EXISTS              ErrorCode = "EMAIL_EXISTS"
	CODE_INVALID_CREDENTIALS       ErrorCode = "INVALID_CREDENTIALS"
	CODE_ACCOUNT_DEACTIVATED       ErrorCode = "ACCOUNT_DEACTIVATED"
	CODE_UPDATE_FAILED             ErrorCode = "UPDATE_FAILED"
	CODE_RETRIEVAL_FAILED          ErrorCode = "RETRIEVAL_FAILED"
	CODE_INVALID_RESET_TOKEN       ErrorCode = "INVALID_RESET_TOKEN"
	CODE_INVALID_VERIFICATION_CODE ErrorCode = "INVALID_VERIFICATION_CODE"
	CODE_UNAUTHORIZED              ErrorCode = "UNAUTHORIZED"
	CODE_SERVER_ERROR              ErrorCode = "SERVER_ERROR"
)

// Error is the tagged failure every Service method returns instead of
// leaking store or library errors to the boundary.
type Error struct {
	Code    ErrorCode
	Message string
	Errors  map[string]string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func validationError(reason string) *Error {
	return &Error{
		Code:    CODE_VALIDATION_ERROR,
		Message: "Validation failed",
		Errors:  map[string]string{"general": reason},
	}
}

func fieldError(code ErrorCode, message, field, reason string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Errors:  map[string]string{field: reason},
	}
}

func serverError(message string) *Error {
	return &Error{Code: CODE_SERVER_ERROR, Message: message}
}
