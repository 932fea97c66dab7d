package entity

import "errors"

// Conflict errors: expected and recoverable by the caller. Never logged as
// system failures.
var (
	ErrShowtimeNotFound       = errors.New("showtime not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrPendingBookingNotFound = errors.New("no pending booking for payment hold")
	ErrInsufficientSeats      = errors.New("not enough seats available")
	ErrHoldExpired            = errors.New("payment hold expired")
	ErrAlreadyConfirmed       = errors.New("booking already confirmed")
	ErrAlreadyCancelled       = errors.New("booking already cancelled")
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrPriceMismatch          = errors.New("price does not match showtime price")
	ErrPaymentNotSuccessful   = errors.New("payment has not succeeded")
	ErrNotBookingOwner        = errors.New("booking belongs to another user")
)

// ErrSeatAccounting is an invariant violation: a release that would push
// available seats past capacity, or a double release for one booking. It
// indicates a bug in this core, not a caller mistake.
var ErrSeatAccounting = errors.New("seat accounting invariant violated")
