package core

import "errors"

var (
	// ErrIndexOutOfRange is returned when a timeline position does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTrialConflict is returned when renumbering a trial would overwrite an existing entry.
	ErrTrialConflict = errors.New("the requested trial number change conflicts with an existing item")

	// ErrInvalidPrescreener is returned when an operation needs a single prescreener.
	ErrInvalidPrescreener = errors.New("invalid prescreener")

	// ErrMissingSubject is returned when a persisted document has no Subject entry.
	ErrMissingSubject = errors.New("document has no Subject entry")
)
