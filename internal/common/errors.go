// Package common holds the constants, sentinel errors and small helpers that
// both the client and the server depend on. Match errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorPermissionDenied = errors.New("permission denied")
	ErrorInvalidArgument  = errors.New("invalid argument")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
