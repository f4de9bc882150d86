package errors

import (
	"errors"
)

// Sentinel errors for different failure categories
var (
	// ErrExtraction - model returned a malformed or absent structured response
	// (recovered locally into a fallback intent or user-facing error text, never a crash)
	ErrExtraction = errors.New("extraction failed")

	// ErrValidation - extracted fields are unusable, e.g. missing recipient or empty
	// message (surfaced as a request for clarification, no job mutation)
	ErrValidation = errors.New("invalid input")

	// ErrCapabilityUnavailable - tool capability not registered or provider not
	// reachable (surfaced as a degraded-service message)
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrDelivery - messaging provider rejected or timed out a send (surfaced for
	// immediate sends, absorbed-and-rescheduled for recurring jobs)
	ErrDelivery = errors.New("delivery failed")

	// ErrConflict - two writers targeted the same job id simultaneously; the loser
	// of the store's atomicity contract gets this
	ErrConflict = errors.New("conflict")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrTransient - transient error (network, rate limit); callers may retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error (generic message to the user)
	ErrInternal = errors.New("internal error")
)
