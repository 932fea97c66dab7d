package response

import (
	"time"

	"cinema-tickets/internal/data/entity"
)

type BookingResponse struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	UserID        string               `json:"user_id,omitempty"`
	ShowtimeID    string               `json:"showtime_id"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	NumberOfSeats int                  `json:"number_of_seats"`
	TotalPrice    float64              `json:"total_price"`
	Status        entity.BookingStatus `json:"status"`
	PaymentStatus entity.PaymentStatus `json:"payment_status"`
	PaymentMethod string               `json:"payment_method"`
	HoldID        string               `json:"hold_id,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	Payment       *PaymentResponse     `json:"payment,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// HoldResponse is returned by Phase 1; the client secret lets the customer
// complete payment directly with the gateway.
type HoldResponse struct {
	BookingResponse
	ClientSecret string `json:"client_secret"`
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Amount        float64              `json:"amount"`
	Status        entity.PaymentStatus `json:"status"`
	Method        string               `json:"method"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Helper converters

func BookingToResponse(booking *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            booking.ID.String(),
		OrderID:       booking.OrderID,
		ShowtimeID:    booking.ShowtimeID.String(),
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		NumberOfSeats: booking.NumberOfSeats,
		TotalPrice:    booking.TotalPrice,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		PaymentMethod: booking.PaymentMethod,
		ExpiresAt:     booking.ExpiresAt,
		CreatedAt:     booking.CreatedAt,
	}

	if booking.UserID != nil {
		resp.UserID = booking.UserID.String()
	}
	if booking.PaymentHoldID != nil {
		resp.HoldID = *booking.PaymentHoldID
	}

	return resp
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID.String(),
		BookingID:     payment.BookingID.String(),
		Amount:        payment.Amount,
		Status:        payment.Status,
		Method:        payment.Method,
		TransactionID: payment.TransactionID,
		CreatedAt:     payment.CreatedAt,
	}
}
