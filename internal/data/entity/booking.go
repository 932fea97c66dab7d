package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Legacy same-transaction methods with no gateway round-trip.
const (
	PaymentMethodMock = "mock"
	PaymentMethodCash = "cash"
)

type Booking struct {
	Base
	OrderID       string        `db:"order_id"`
	UserID        *uuid.UUID    `db:"user_id"` // nil for guest bookings
	ShowtimeID    uuid.UUID     `db:"showtime_id"`
	CustomerName  string        `db:"customer_name"`
	CustomerEmail string        `db:"customer_email"`
	CustomerPhone *string       `db:"customer_phone"`
	NumberOfSeats int           `db:"number_of_seats"`
	TotalPrice    float64       `db:"total_price"`
	Status        BookingStatus `db:"status"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	PaymentMethod string        `db:"payment_method"`
	PaymentHoldID *string       `db:"payment_hold_id"`
	ExpiresAt     *time.Time    `db:"expires_at"` // set only while pending
}

// CanTransitionTo encodes the booking state machine:
// pending -> confirmed | cancelled | expired, confirmed -> cancelled.
// Terminal states never transition again.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return target == BookingStatusConfirmed ||
			target == BookingStatusCancelled ||
			target == BookingStatusExpired
	case BookingStatusConfirmed:
		return target == BookingStatusCancelled
	default:
		return false
	}
}

// IsTerminal reports whether the seats of this booking have been resolved.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled || s == BookingStatusExpired
}

// HoldExpired reports whether a pending hold is past its window. Expired but
// not yet swept bookings must be treated as expired by every operation that
// inspects them, not only by the sweeper.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPending && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// UsesGateway reports whether the booking settles through the external
// payment gateway.
func (b *Booking) UsesGateway() bool {
	return b.PaymentMethod != PaymentMethodMock && b.PaymentMethod != PaymentMethodCash
}

// PriceMatches compares two amounts within the configured tolerance.
func PriceMatches(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
