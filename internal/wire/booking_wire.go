package wire

import (
	"cinema-tickets/internal/adaptor"
	"cinema-tickets/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// Purchase flow. Guests may book; identity, when present, is attached
	// to the booking for later ownership checks.
	r.Post("/api/booking/hold", bookingHandler.OpenHold)
	r.Post("/api/booking/confirm", bookingHandler.ConfirmHold)
	r.Post("/api/booking", bookingHandler.CreateBooking)

	r.Get("/api/bookings/{id}", bookingHandler.GetBookingByID)
	r.Put("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
	})
}
