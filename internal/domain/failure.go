package domain

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FailureValidation          FailureKind = "VALIDATION"
	FailureReservationConflict FailureKind = "RESERVATION_CONFLICT"
	FailureHoldExpired         FailureKind = "HOLD_EXPIRED"
	FailureConfirmation        FailureKind = "CONFIRMATION_FAILURE"
	FailureNetwork             FailureKind = "NETWORK"
	FailureFeedDisconnect      FailureKind = "FEED_DISCONNECT"
	FailureAbandoned           FailureKind = "ABANDONED"
)

// Failure is the structured reason carried by every terminal failure up to the presentation layer.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

func NewFailure(kind FailureKind, detail string) *Failure {
	return &Failure{Kind: kind, Detail: detail}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// AsFailure extracts a Failure from err. Errors without one are reported as network failures.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(FailureNetwork, err.Error())
}

func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}
