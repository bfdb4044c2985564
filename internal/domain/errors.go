package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrSlotNotFound   = errors.New("slot not found")
	ErrSellerNotFound = errors.New("seller not found")
)

// InvalidSlotIDError is returned when a slot id falls outside the fixed
// [1, SlotCount] domain.
type InvalidSlotIDError struct {
	ID int
}

func (e *InvalidSlotIDError) Error() string {
	return fmt.Sprintf("slot id %d is outside [1, %d]", e.ID, SlotCount)
}

// SlotTransitionError is returned when an operational event is not allowed
// from the slot's current state.
type SlotTransitionError struct {
	Event   SlotEvent
	Current SlotStatus
}

func (e *SlotTransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from slot state %q", e.Event, e.Current)
}

// DraftTransitionError is returned when a draft event is not allowed from
// the slot's current draft state.
type DraftTransitionError struct {
	Event   DraftEvent
	Current DraftStatus
}

func (e *DraftTransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from draft state %q", e.Event, e.Current)
}

// PreconditionError is returned when the conditional write for an
// operation matched no row: the status the caller acted on changed
// underneath it. Callers should re-read before retrying.
type PreconditionError struct {
	Op     string
	SlotID int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s on slot %d: state changed concurrently, precondition no longer holds", e.Op, e.SlotID)
}

// DraftValidationError is returned when draft content is not eligible for
// publication.
type DraftValidationError struct {
	Field  string
	Reason string
}

func (e *DraftValidationError) Error() string {
	return fmt.Sprintf("draft field %q: %s", e.Field, e.Reason)
}

// ResolutionError is returned when a seller contact token cannot be
// resolved during approval. It is not retryable without a corrected token.
type ResolutionError struct {
	Contact string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving seller contact %q: %v", e.Contact, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
