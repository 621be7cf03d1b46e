// Package services defines the business logic of the lead funnel: the answer
// store, the conversation state machine and the lead dispatcher.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrProfileNotFound indicates that an operation referenced an identity
	// with no stored profile. Callers should treat it as a logic bug.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidTransition is returned when an event is not accepted in the
	// profile's current state. Nothing is persisted when it is returned.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidAnswer is returned when an answer targets an unknown field or
	// carries a value outside the field's option set.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidStatus is returned for conversion statuses outside the
	// accepted set.
	ErrInvalidStatus = errors.New("invalid conversion status")

	// ErrEmptyIdentity is returned when an event or lookup has no identity.
	ErrEmptyIdentity = errors.New("identity is empty")
)
