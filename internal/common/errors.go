// Package common defines shared constants and sentinel errors used across
// the client and server layers of foliosync. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrVersionConflict   = errors.New("version conflict")

	// Backend faults surfaced to the sync client.
	ErrorBackend = errors.New("backend error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Share-link errors.
	ErrShareRevoked = errors.New("share link revoked")
	ErrShareExpired = errors.New("share link expired")
)
