package usecase

import (
	"context"
	"fmt"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/data/repository"
	"cinema-tickets/internal/dto/response"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor identifies who requested a cancellation. Identity is supplied by the
// upstream auth layer; an empty UserID means an unauthenticated caller.
type Actor struct {
	UserID string
	Admin  bool
}

// CancellationService reverses bookings and issues refunds. The local
// transition always lands first; the gateway refund is a compensating action
// that never blocks it.
type CancellationService interface {
	CancelBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error)
}

type cancellationService struct {
	repo *repository.Repository
	gw   gateway.Gateway
	log  *zap.Logger
}

func NewCancellationService(repo *repository.Repository, gw gateway.Gateway, log *zap.Logger) CancellationService {
	return &cancellationService{
		repo: repo,
		gw:   gw,
		log:  log.With(zap.String("service", "cancellation")),
	}
}

func (s *cancellationService) CancelBooking(ctx context.Context, actor Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, entity.ErrBookingNotFound
	}

	if err := s.authorize(actor, booking); err != nil {
		return nil, err
	}

	// Locked transition first. Only the transaction that wins the transition
	// proceeds to the refund, so the refund is issued at most once.
	cancelled, err := s.repo.Booking.CancelBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.SeatsReleased.Add(float64(cancelled.NumberOfSeats))
	metrics.BookingsCancelled.Inc()

	if cancelled.PaymentStatus == entity.PaymentStatusRefunded && cancelled.UsesGateway() {
		s.refund(ctx, cancelled)
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", cancelled.ID.String()),
		zap.String("order_id", cancelled.OrderID),
		zap.Int("seats_released", cancelled.NumberOfSeats),
	)

	resp := response.BookingToResponse(cancelled)
	return &resp, nil
}

func (s *cancellationService) authorize(actor Actor, booking *entity.Booking) error {
	if actor.Admin {
		return nil
	}
	if booking.UserID == nil {
		// Guest bookings are managed through support, i.e. admin identity.
		return entity.ErrNotBookingOwner
	}
	if actor.UserID == "" || booking.UserID.String() != actor.UserID {
		return entity.ErrNotBookingOwner
	}
	return nil
}

// refund issues the gateway refund for an already-cancelled booking. A
// failure leaves the local state cancelled and is surfaced through the log
// and the refund failure counter for operational follow-up.
func (s *cancellationService) refund(ctx context.Context, booking *entity.Booking) {
	transactionID := s.transactionID(ctx, booking)
	if transactionID == "" {
		metrics.RefundFailures.Inc()
		s.log.Error("No transaction reference for refund",
			zap.String("booking_id", booking.ID.String()),
			zap.String("order_id", booking.OrderID),
		)
		return
	}

	result, err := s.gw.Refund(ctx, transactionID)
	if err != nil {
		metrics.RefundFailures.Inc()
		s.log.Error("Refund failed, booking stays cancelled",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("order_id", booking.OrderID),
			zap.String("transaction_id", transactionID),
		)
		return
	}

	s.log.Info("Refund issued",
		zap.String("booking_id", booking.ID.String()),
		zap.String("refund_id", result.RefundID),
		zap.String("refund_status", result.Status),
	)
}

func (s *cancellationService) transactionID(ctx context.Context, booking *entity.Booking) string {
	payment, err := s.repo.Payment.FindByBookingID(ctx, booking.ID)
	if err != nil {
		s.log.Error("Failed to load payment for refund",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}
	if payment != nil && payment.TransactionID != nil {
		return *payment.TransactionID
	}
	if booking.PaymentHoldID != nil {
		return *booking.PaymentHoldID
	}
	return ""
}
