// Package apperr is the closed set of failure kinds shared by the service and
// the HTTP boundary. Only the boundary turns a Kind into a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindDbFailure Kind = iota
	KindDuplicateUsername
	KindAccountNotFound
	KindInvalidCredential
	KindHashingFailure
	KindMalformedRequest
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateUsername:
		return "DuplicateUsername"
	case KindAccountNotFound:
		return "AccountNotFound"
	case KindInvalidCredential:
		return "InvalidCredential"
	case KindHashingFailure:
		return "HashingFailure"
	case KindMalformedRequest:
		return "MalformedRequest"
	default:
		return "DbFailure"
	}
}

// Error is a classified failure. Detail is safe to show to clients;
// Err is the underlying cause and is only logged.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, apperr.ErrInvalidCredential) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrDuplicateUsername = &Error{Kind: KindDuplicateUsername}
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrHashingFailure    = &Error{Kind: KindHashingFailure}
	ErrDbFailure         = &Error{Kind: KindDbFailure}
	ErrMalformedRequest  = &Error{Kind: KindMalformedRequest}
)

func DuplicateUsername(username string) error {
	return &Error{Kind: KindDuplicateUsername, Detail: fmt.Sprintf("username %q already exists", username)}
}

func AccountNotFound(identifier any) error {
	return &Error{Kind: KindAccountNotFound, Detail: fmt.Sprintf("account %v not found", identifier)}
}

func InvalidCredential() error {
	return &Error{Kind: KindInvalidCredential, Detail: "invalid username or password"}
}

func HashingFailure(err error) error {
	return &Error{Kind: KindHashingFailure, Detail: "password hashing failed", Err: err}
}

// DbFailure wraps a storage error; op names the failed step for the logs.
func DbFailure(op string, err error) error {
	return &Error{Kind: KindDbFailure, Detail: "storage error", Err: fmt.Errorf("%s: %w", op, err)}
}

func MalformedRequest(detail string) error {
	return &Error{Kind: KindMalformedRequest, Detail: detail}
}

// KindOf classifies err. Anything unclassified is treated as an internal failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDbFailure
}

// DetailOf returns the client-safe detail of err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return KindOf(err).String()
}
