package request

// OpenHoldRequest starts the two-phase purchase: seats are reserved and a
// payment hold is opened with the gateway.
type OpenHoldRequest struct {
	ShowtimeID    string  `json:"showtime_id" validate:"required,uuid4"`
	CustomerName  string  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	CustomerPhone *string `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
	NumberOfSeats int     `json:"number_of_seats" validate:"required,gt=0"`
	TotalPrice    float64 `json:"total_price" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,oneof=card wallet"`
}

// ConfirmHoldRequest settles a previously opened hold once the customer has
// completed payment.
type ConfirmHoldRequest struct {
	HoldID     string  `json:"hold_id" validate:"required"`
	TotalPrice float64 `json:"total_price" validate:"gte=0"`
}

// CreateBookingRequest is the legacy synchronous path for non-gateway payment
// methods: booking and payment settle in a single transaction.
type CreateBookingRequest struct {
	ShowtimeID    string  `json:"showtime_id" validate:"required,uuid4"`
	CustomerName  string  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	CustomerPhone *string `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
	NumberOfSeats int     `json:"number_of_seats" validate:"required,gt=0"`
	TotalPrice    float64 `json:"total_price" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,oneof=mock cash"`
}
