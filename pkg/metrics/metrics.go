package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the reservation core's operational events. Refund failures in
// particular must stay visible so operators can reconcile them manually.
var (
	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_seats_reserved_total",
		Help: "Seats deducted from showtime ledgers.",
	})

	SeatsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_seats_released_total",
		Help: "Seats returned to showtime ledgers.",
	})

	OversellRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_oversell_rejections_total",
		Help: "Reservations rejected for insufficient seats.",
	})

	HoldsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_holds_opened_total",
		Help: "Pending bookings created with a payment hold.",
	})

	HoldsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_holds_confirmed_total",
		Help: "Pending bookings settled into confirmed.",
	})

	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_holds_expired_total",
		Help: "Pending bookings reclaimed by the expiry sweeper.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_bookings_cancelled_total",
		Help: "Bookings transitioned to cancelled.",
	})

	RefundFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_refund_failures_total",
		Help: "Gateway refunds that failed and need manual follow-up.",
	})

	GatewayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_gateway_failures_total",
		Help: "Payment gateway calls that failed or timed out.",
	})
)
