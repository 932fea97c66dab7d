package entity

import (
	"github.com/google/uuid"
)

type Payment struct {
	Base
	BookingID     uuid.UUID     `db:"booking_id"`
	Amount        float64       `db:"amount"`
	Status        PaymentStatus `db:"status"`
	Method        string        `db:"method"`
	TransactionID *string       `db:"transaction_id"`
}
