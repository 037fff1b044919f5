// Package common defines shared constants and the closed set of sentinel
// errors used across server and client layers. Callers match them with
// errors.Is; services wrap lower-level failures with %w so the sentinel
// survives to the transport layer.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Auth errors. Transports map each one to a fixed status code.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// ErrorKind enumerates the failure classes a request can end in.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindValidation
	KindInvalidCredentials
	KindMissingToken
	KindInvalidToken
	KindUnauthorized
	KindForbidden
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrMissingToken, KindMissingToken},
	{ErrInvalidToken, KindInvalidToken},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrValidation, KindValidation},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrorNotFound, KindNotFound},
}

// Kind classifies err. Anything outside the known sentinels is KindInternal.
func Kind(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}
