// Package identity resolves bearer credentials issued by the hosted identity
// provider into subjects.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrRejected means the provider does not accept the credential.
	ErrRejected = errors.New("credential rejected")
	// ErrUnavailable means the provider could not be asked.
	ErrUnavailable = errors.New("identity provider unavailable")
)

type Subject struct {
	ID    string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Subject, error)
}

// RejectedError is a rejection that can still be attributed to a subject,
// such as a correctly signed but expired token.
type RejectedError struct {
	Subject Subject
	Reason  string
}

func (e *RejectedError) Error() string {
	return "credential rejected: " + e.Reason
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
