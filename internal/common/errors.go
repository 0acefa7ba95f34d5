// Package common holds the error values shared by services, repositories and handlers.
// Callers match them with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// validation
	ErrValidation       = errors.New("validation error")
	ErrInvalidName      = fmt.Errorf("%w: name must not be empty", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)

	// auth
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")

	// lookup
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// downstream
	ErrStorageFailure    = errors.New("storage failure")
	ErrRepositoryFailure = errors.New("repository failure")
)

// StorageFailure tags err as an object store failure while keeping it in the chain.
func StorageFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

// RepositoryFailure tags err as a metadata store failure while keeping it in the chain.
func RepositoryFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrRepositoryFailure, err)
}
