package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/data/repository"
	"cinema-tickets/internal/dto/request"
	"cinema-tickets/internal/dto/response"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/pkg/metrics"
	"cinema-tickets/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService coordinates the two-phase purchase flow against the
// payment gateway plus the legacy single-transaction path.
type SettlementService interface {
	// OpenHold is Phase 1: seats are deducted and a pending booking with an
	// expiry window is created before the gateway hold is opened. If the
	// gateway call fails the reservation is compensated, not left dangling.
	OpenHold(ctx context.Context, userID string, req *request.OpenHoldRequest) (*response.HoldResponse, error)

	// ConfirmHold is Phase 2: settles a hold once the gateway reports the
	// payment succeeded. Safe to retry; a repeated confirm returns success
	// without creating a second payment.
	ConfirmHold(ctx context.Context, req *request.ConfirmHoldRequest) (*response.BookingResponse, error)

	// CreateBooking is the legacy pay-on-booking path for non-gateway
	// payment methods.
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
}

type settlementService struct {
	repo         *repository.Repository
	gw           gateway.Gateway
	sweeper      SweeperService
	holdWindow   time.Duration
	priceEpsilon float64
	log          *zap.Logger
}

func NewSettlementService(repo *repository.Repository, gw gateway.Gateway, sweeper SweeperService, config *utils.Config, log *zap.Logger) SettlementService {
	return &settlementService{
		repo:         repo,
		gw:           gw,
		sweeper:      sweeper,
		holdWindow:   config.Booking.HoldWindow,
		priceEpsilon: config.Booking.PriceEpsilon,
		log:          log.With(zap.String("service", "settlement")),
	}
}

func (s *settlementService) OpenHold(ctx context.Context, userID string, req *request.OpenHoldRequest) (*response.HoldResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Open hold validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.prepareBooking(ctx, userID, req.ShowtimeID, req.CustomerName,
		req.CustomerEmail, req.CustomerPhone, req.NumberOfSeats, req.TotalPrice)
	if err != nil {
		return nil, err
	}

	booking.PaymentMethod = req.PaymentMethod
	if booking.PaymentMethod == "" {
		booking.PaymentMethod = "card"
	}
	expiresAt := time.Now().Add(s.holdWindow)
	booking.ExpiresAt = &expiresAt

	if err := s.repo.Booking.CreateHold(ctx, booking); err != nil {
		if errors.Is(err, entity.ErrInsufficientSeats) {
			metrics.OversellRejections.Inc()
		}
		return nil, err
	}
	metrics.SeatsReserved.Add(float64(booking.NumberOfSeats))

	// The gateway round-trip happens outside any row lock; if it fails the
	// already-committed reservation is undone by a compensating cancel.
	hold, err := s.gw.OpenHold(ctx, booking.TotalPrice, gateway.CustomerMetadata{
		Name:    booking.CustomerName,
		Email:   booking.CustomerEmail,
		OrderID: booking.OrderID,
	})
	if err != nil {
		metrics.GatewayFailures.Inc()
		s.compensateHold(ctx, booking.ID)
		return nil, fmt.Errorf("open payment hold for booking %s: %w", booking.OrderID, err)
	}

	if err := s.repo.Booking.SetPaymentHold(ctx, booking.ID, hold.HoldID); err != nil {
		// The booking was resolved (swept or cancelled) while the gateway
		// call was in flight; the gateway hold is orphaned and will lapse
		// on the gateway side.
		s.log.Warn("Booking resolved before hold id could be persisted",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("hold_id", hold.HoldID),
		)
		return nil, fmt.Errorf("persist payment hold for booking %s: %w", booking.OrderID, err)
	}
	booking.PaymentHoldID = &hold.HoldID

	metrics.HoldsOpened.Inc()
	s.log.Info("Payment hold opened",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("hold_id", hold.HoldID),
		zap.Int("seats", booking.NumberOfSeats),
		zap.Float64("total_price", booking.TotalPrice),
	)

	return &response.HoldResponse{
		BookingResponse: response.BookingToResponse(booking),
		ClientSecret:    hold.ClientSecret,
	}, nil
}

func (s *settlementService) ConfirmHold(ctx context.Context, req *request.ConfirmHoldRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Confirm hold validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.repo.Booking.FindByHoldID(ctx, req.HoldID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, entity.ErrPendingBookingNotFound
	}

	// Reclaim stale holds for this showtime so the state checked below is
	// not stale either.
	if _, err := s.sweeper.SweepShowtime(ctx, booking.ShowtimeID); err != nil {
		s.log.Error("Pre-confirm sweep failed", zap.Error(err))
	}

	switch booking.Status {
	case entity.BookingStatusConfirmed:
		// Confirmation must be safe to retry.
		return s.confirmedResponse(ctx, booking)
	case entity.BookingStatusExpired:
		return nil, entity.ErrHoldExpired
	case entity.BookingStatusCancelled:
		return nil, entity.ErrInvalidStateTransition
	}

	if booking.HoldExpired(time.Now()) {
		return nil, entity.ErrHoldExpired
	}

	if !entity.PriceMatches(req.TotalPrice, booking.TotalPrice, s.priceEpsilon) {
		return nil, fmt.Errorf("%w: expected %.2f, got %.2f",
			entity.ErrPriceMismatch, booking.TotalPrice, req.TotalPrice)
	}

	// Gateway verdict, again outside any row lock.
	status, err := s.gw.GetHoldStatus(ctx, req.HoldID)
	if err != nil {
		metrics.GatewayFailures.Inc()
		return nil, fmt.Errorf("query payment hold %s: %w", req.HoldID, err)
	}

	if status.Status != gateway.HoldStatusSucceeded {
		// The customer may still pay before the window closes; the booking
		// stays pending and either gets retried or expires naturally.
		s.log.Info("Payment not yet successful",
			zap.String("booking_id", booking.ID.String()),
			zap.String("hold_id", req.HoldID),
			zap.String("gateway_status", status.Status),
		)
		return nil, fmt.Errorf("%w: gateway reports %s", entity.ErrPaymentNotSuccessful, status.Status)
	}

	now := time.Now()
	holdID := req.HoldID
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Amount:        booking.TotalPrice,
		Status:        entity.PaymentStatusCompleted,
		Method:        booking.PaymentMethod,
		TransactionID: &holdID,
	}

	if err := s.repo.Booking.ConfirmHold(ctx, booking.ID, payment); err != nil {
		if errors.Is(err, entity.ErrAlreadyConfirmed) {
			// A concurrent confirm won; treat as success.
			booking.Status = entity.BookingStatusConfirmed
			booking.PaymentStatus = entity.PaymentStatusCompleted
			booking.ExpiresAt = nil
			return s.confirmedResponse(ctx, booking)
		}
		return nil, err
	}

	booking.Status = entity.BookingStatusConfirmed
	booking.PaymentStatus = entity.PaymentStatusCompleted
	booking.ExpiresAt = nil

	metrics.HoldsConfirmed.Inc()
	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("hold_id", req.HoldID),
	)

	resp := response.BookingToResponse(booking)
	paymentResp := response.PaymentToResponse(payment)
	resp.Payment = &paymentResp
	return &resp, nil
}

func (s *settlementService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.prepareBooking(ctx, userID, req.ShowtimeID, req.CustomerName,
		req.CustomerEmail, req.CustomerPhone, req.NumberOfSeats, req.TotalPrice)
	if err != nil {
		return nil, err
	}

	booking.Status = entity.BookingStatusConfirmed
	booking.PaymentStatus = entity.PaymentStatusCompleted
	booking.PaymentMethod = req.PaymentMethod
	if booking.PaymentMethod == "" {
		booking.PaymentMethod = entity.PaymentMethodMock
	}

	now := time.Now()
	transactionID := fmt.Sprintf("MOCK-%d", now.UnixMilli())
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Amount:        booking.TotalPrice,
		Status:        entity.PaymentStatusCompleted,
		Method:        booking.PaymentMethod,
		TransactionID: &transactionID,
	}

	if err := s.repo.Booking.CreateConfirmed(ctx, booking, payment); err != nil {
		if errors.Is(err, entity.ErrInsufficientSeats) {
			metrics.OversellRejections.Inc()
		}
		return nil, err
	}
	metrics.SeatsReserved.Add(float64(booking.NumberOfSeats))

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.Int("seats", booking.NumberOfSeats),
		zap.String("payment_method", booking.PaymentMethod),
	)

	resp := response.BookingToResponse(booking)
	paymentResp := response.PaymentToResponse(payment)
	resp.Payment = &paymentResp
	return &resp, nil
}

// prepareBooking runs the shared Phase-1 preconditions: showtime exists,
// price matches within tolerance, stale holds swept. It returns an unsaved
// pending booking entity.
func (s *settlementService) prepareBooking(ctx context.Context, userID, showtimeIDStr, name, email string, phone *string, seats int, totalPrice float64) (*entity.Booking, error) {
	showtimeID, err := uuid.Parse(showtimeIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", showtimeIDStr, err)
	}

	var userUUID *uuid.UUID
	if userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
		}
		userUUID = &parsed
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	if showtime == nil {
		return nil, entity.ErrShowtimeNotFound
	}

	expectedPrice := showtime.Price * float64(seats)
	if !entity.PriceMatches(totalPrice, expectedPrice, s.priceEpsilon) {
		return nil, fmt.Errorf("%w: expected %.2f, got %.2f",
			entity.ErrPriceMismatch, expectedPrice, totalPrice)
	}

	// Stale holds must not block availability for this purchase.
	if _, err := s.sweeper.SweepShowtime(ctx, showtimeID); err != nil {
		s.log.Error("Pre-purchase sweep failed", zap.Error(err))
	}

	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:       utils.GenerateOrderID(),
		UserID:        userUUID,
		ShowtimeID:    showtimeID,
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: phone,
		NumberOfSeats: seats,
		TotalPrice:    totalPrice,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
	}

	return booking, nil
}

// compensateHold undoes a committed reservation after a failed gateway call.
func (s *settlementService) compensateHold(ctx context.Context, bookingID uuid.UUID) {
	cancelled, err := s.repo.Booking.CancelBooking(ctx, bookingID)
	if err != nil {
		// The sweeper will still reclaim the seats when the hold lapses.
		s.log.Error("Failed to compensate reservation after gateway failure",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return
	}
	metrics.SeatsReleased.Add(float64(cancelled.NumberOfSeats))

	s.log.Info("Reservation compensated after gateway failure",
		zap.String("booking_id", bookingID.String()),
	)
}

// confirmedResponse rebuilds the success payload for an idempotent confirm.
func (s *settlementService) confirmedResponse(ctx context.Context, booking *entity.Booking) (*response.BookingResponse, error) {
	resp := response.BookingToResponse(booking)

	payment, err := s.repo.Payment.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		paymentResp := response.PaymentToResponse(payment)
		resp.Payment = &paymentResp
	}

	return &resp, nil
}
