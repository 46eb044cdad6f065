package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"petcare-vet-server/internal/repository"
)

// Error kinds. Every error returned by a service unwraps to exactly one of them.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage error")
)

// Error carries a kind plus the reason shown to the caller.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func validationf(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFound(reason string) error {
	return &Error{Kind: ErrNotFound, Reason: reason}
}

func accessDenied(reason string) error {
	return &Error{Kind: ErrAccessDenied, Reason: reason}
}

func conflict(reason string) error {
	return &Error{Kind: ErrConflict, Reason: reason}
}

// Kind names the error kind of err for transport layers.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "storage"
	}
}

// Reason returns the caller-facing message of err. Unknown errors never leak.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return storageReason
}

const (
	storageReason     = "internal storage error"
	activeExistsMsg   = "active appointment already exists"
	slotTakenMsg      = "time slot is already booked"
	staleStateMessage = "appointment was modified by another request, reload and retry"
)

// storageError logs the failure with its context and hides it from the caller.
func storageError(log zerolog.Logger, op string, err error, kv map[string]interface{}) error {
	log.Error().Err(err).Str("op", op).Fields(kv).Msg("storage failure")
	return &Error{Kind: ErrStorage, Reason: storageReason}
}

// writeError classifies repository write failures. Claim and optimistic-lock
// failures are conflicts, anything else is a storage error.
func writeError(log zerolog.Logger, op string, err error, kv map[string]interface{}) error {
	var claim *repository.ClaimError
	switch {
	case errors.As(err, &claim):
		if strings.HasPrefix(claim.Key, slotClaimPrefix) {
			return conflict(slotTakenMsg)
		}
		return conflict(activeExistsMsg)
	case errors.Is(err, repository.ErrStaleState):
		return conflict(staleStateMessage)
	case errors.Is(err, repository.ErrNotFound):
		return notFound("Appointment not found")
	}
	return storageError(log, op, err, kv)
}
