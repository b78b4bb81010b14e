package utils

import "errors"

var (
	// ErrDuplicateKey is returned by stores when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTokenExpired means the signature checked out but the token is past exp.
	ErrTokenExpired = errors.New("Token has expired")

	// ErrTokenInvalid covers bad signatures and malformed tokens alike.
	ErrTokenInvalid = errors.New("Invalid token")
)
