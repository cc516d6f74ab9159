// Package common defines shared constants and sentinel errors used across
// the gateway's layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("wrong credentials")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("user already exists")

	// Verification-token lifecycle errors.
	ErrorAlreadyPending = errors.New("verification already pending")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")

	// Mail transport errors.
	ErrorDelivery = errors.New("delivery failed")
)
