package booking

import (
	"errors"
	"rentals/src/inventory"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrItemNotFound       = inventory.ErrItemNotFound
	ErrForbidden          = errors.New("not allowed to manage this booking")
	ErrInvalidTransition  = errors.New("booking cannot change to the requested status")
	ErrInventoryConflict  = errors.New("rental is no longer available for these dates")
	ErrOverlappingBooking = errors.New("you already have a booking for this rental on overlapping dates")
	ErrRefundFailed       = errors.New("refund could not be issued")
)

// ValidationError reports bad input to an operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
