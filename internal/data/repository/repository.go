package repository

import (
	"cinema-tickets/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Showtime ShowtimeRepository
	Booking  BookingRepository
	Payment  PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	showtime := NewShowtimeRepository(db, log)
	payment := NewPaymentRepository(db, log)

	return &Repository{
		Showtime: showtime,
		Booking:  NewBookingRepository(db, showtime, payment, log),
		Payment:  payment,
	}
}
