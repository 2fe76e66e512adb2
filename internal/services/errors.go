package services

import (
	"errors"
	"fmt"

	"github.com/linkup-social/apiserver/types"
)

var (
	// ErrPasswordMismatch is returned when password and confirmPassword differ.
	ErrPasswordMismatch = errors.New("password and confirm password do not match")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already exists")

	// ErrInvalidPassword is returned when the login password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidRefreshToken is returned when a refresh token fails
	// verification or does not match the stored value (reuse after rotation).
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrForbidden is returned when a user acts on another identity's behalf.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError marks a request-field validation failure.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// NotFoundError identifies which referenced entity is absent.
type NotFoundError struct {
	Entity string
}

func (e NotFoundError) Error() string { return e.Entity + " not found" }

// ConflictError reports an already existing friendship, carrying the
// status of the existing record.
type ConflictError struct {
	Status types.FriendshipStatus
}

func (e ConflictError) Error() string {
	switch e.Status {
	case types.FriendshipPending:
		return "friend request already sent and pending"
	case types.FriendshipAccepted:
		return "users are already friends"
	case types.FriendshipRejected:
		return "friend request was previously rejected"
	}
	return "friendship already exists"
}

func notFound(entity string) error { return NotFoundError{Entity: entity} }

func invalid(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}
