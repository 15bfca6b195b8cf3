package models

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP statuses.
var (
	ErrInvalidParameters  = errors.New("invalid parameters")
	ErrValidation         = errors.New("validation error")
	ErrSigningFailure     = errors.New("token signing failed")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyRevoked     = errors.New("token already revoked")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("already exists")
)

// Specific errors wrap a kind so errors.Is matches both.
var (
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", ErrInvalidToken)
	ErrTokenRevoked       = fmt.Errorf("%w: token has been revoked", ErrInvalidToken)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserSuspended      = fmt.Errorf("%w: user is suspended", ErrForbidden)
	ErrUsernameTaken      = fmt.Errorf("%w: username is taken", ErrConflict)
	ErrEmailAlreadyExists = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrPasswordMismatch   = fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	ErrInvalidPhoneCode   = fmt.Errorf("%w: phone verification code is invalid or expired", ErrValidation)
)
