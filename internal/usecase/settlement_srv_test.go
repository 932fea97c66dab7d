package usecase

import (
	"context"
	"testing"
	"time"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/data/repository"
	"cinema-tickets/internal/dto/request"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type settlementFixture struct {
	showtimes *MockShowtimeRepository
	bookings  *MockBookingRepository
	payments  *MockPaymentRepository
	gw        *MockGateway
	sweeper   *MockSweeper
	service   SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		showtimes: new(MockShowtimeRepository),
		bookings:  new(MockBookingRepository),
		payments:  new(MockPaymentRepository),
		gw:        new(MockGateway),
		sweeper:   new(MockSweeper),
	}

	repo := &repository.Repository{
		Showtime: f.showtimes,
		Booking:  f.bookings,
		Payment:  f.payments,
	}
	config := &utils.Config{
		Booking: utils.BookingConfig{
			HoldWindow:   5 * time.Minute,
			PriceEpsilon: 0.01,
		},
	}

	f.service = NewSettlementService(repo, f.gw, f.sweeper, config, zap.NewNop())
	return f
}

func testShowtime(id uuid.UUID, price float64, available int) *entity.Showtime {
	return &entity.Showtime{
		Base:            entity.Base{ID: id},
		Price:           price,
		SeatingCapacity: 100,
		AvailableSeats:  available,
	}
}

func openHoldRequest(showtimeID uuid.UUID) *request.OpenHoldRequest {
	return &request.OpenHoldRequest{
		ShowtimeID:    showtimeID.String(),
		CustomerName:  "Jane Moviegoer",
		CustomerEmail: "jane@example.com",
		NumberOfSeats: 2,
		TotalPrice:    20.00,
		PaymentMethod: "card",
	}
}

func TestOpenHoldHappyPath(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 10.00, 50), nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.bookings.On("CreateHold", mock.Anything, mock.AnythingOfType("*entity.Booking")).Return(nil)
	f.gw.On("OpenHold", mock.Anything, 20.00, mock.AnythingOfType("gateway.CustomerMetadata")).
		Return(&gateway.Hold{HoldID: "hold_123", ClientSecret: "secret_abc", Status: gateway.HoldStatusPending}, nil)
	f.bookings.On("SetPaymentHold", mock.Anything, mock.AnythingOfType("uuid.UUID"), "hold_123").Return(nil)

	resp, err := f.service.OpenHold(context.Background(), "", openHoldRequest(showtimeID))

	require.NoError(t, err)
	assert.Equal(t, "hold_123", resp.HoldID)
	assert.Equal(t, "secret_abc", resp.ClientSecret)
	assert.Equal(t, entity.BookingStatusPending, resp.Status)
	assert.NotNil(t, resp.ExpiresAt)
	assert.Empty(t, resp.UserID)
	f.bookings.AssertExpectations(t)
	f.gw.AssertExpectations(t)
}

func TestOpenHoldAttachesUser(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	userID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 10.00, 50), nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.bookings.On("CreateHold", mock.Anything, mock.MatchedBy(func(b *entity.Booking) bool {
		return b.UserID != nil && *b.UserID == userID
	})).Return(nil)
	f.gw.On("OpenHold", mock.Anything, 20.00, mock.Anything).
		Return(&gateway.Hold{HoldID: "hold_u", ClientSecret: "s"}, nil)
	f.bookings.On("SetPaymentHold", mock.Anything, mock.Anything, "hold_u").Return(nil)

	resp, err := f.service.OpenHold(context.Background(), userID.String(), openHoldRequest(showtimeID))

	require.NoError(t, err)
	assert.Equal(t, userID.String(), resp.UserID)
}

func TestOpenHoldShowtimeNotFound(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(nil, nil)

	_, err := f.service.OpenHold(context.Background(), "", openHoldRequest(showtimeID))

	assert.ErrorIs(t, err, entity.ErrShowtimeNotFound)
	f.bookings.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything)
}

func TestOpenHoldPriceMismatch(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 12.50, 50), nil)

	req := openHoldRequest(showtimeID)
	req.TotalPrice = 20.00 // 2 seats at 12.50 should be 25.00

	_, err := f.service.OpenHold(context.Background(), "", req)

	assert.ErrorIs(t, err, entity.ErrPriceMismatch)
	f.bookings.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything)
	f.gw.AssertNotCalled(t, "OpenHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenHoldInsufficientSeats(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 10.00, 1), nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.bookings.On("CreateHold", mock.Anything, mock.Anything).Return(entity.ErrInsufficientSeats)

	_, err := f.service.OpenHold(context.Background(), "", openHoldRequest(showtimeID))

	assert.ErrorIs(t, err, entity.ErrInsufficientSeats)
	f.gw.AssertNotCalled(t, "OpenHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenHoldGatewayFailureCompensates(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 10.00, 50), nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.bookings.On("CreateHold", mock.Anything, mock.Anything).Return(nil)
	f.gw.On("OpenHold", mock.Anything, 20.00, mock.Anything).Return(nil, gateway.ErrUnavailable)
	f.bookings.On("CancelBooking", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(&entity.Booking{
			Base:          entity.Base{ID: uuid.New()},
			NumberOfSeats: 2,
			Status:        entity.BookingStatusCancelled,
			PaymentStatus: entity.PaymentStatusFailed,
		}, nil)

	_, err := f.service.OpenHold(context.Background(), "", openHoldRequest(showtimeID))

	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	f.bookings.AssertCalled(t, "CancelBooking", mock.Anything, mock.AnythingOfType("uuid.UUID"))
}

func TestOpenHoldValidationFailure(t *testing.T) {
	f := newSettlementFixture()

	req := &request.OpenHoldRequest{ShowtimeID: "not-a-uuid"}

	_, err := f.service.OpenHold(context.Background(), "", req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	f.showtimes.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func pendingHold(showtimeID uuid.UUID, holdID string, expiresAt time.Time) *entity.Booking {
	return &entity.Booking{
		Base:          entity.Base{ID: uuid.New()},
		OrderID:       "BOOK-20260901-120000-ABCD1234",
		ShowtimeID:    showtimeID,
		CustomerName:  "Jane Moviegoer",
		CustomerEmail: "jane@example.com",
		NumberOfSeats: 2,
		TotalPrice:    20.00,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		PaymentMethod: "card",
		PaymentHoldID: &holdID,
		ExpiresAt:     &expiresAt,
	}
}

func TestConfirmHoldHappyPath(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(3*time.Minute))

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.gw.On("GetHoldStatus", mock.Anything, "hold_123").
		Return(&gateway.HoldStatus{HoldID: "hold_123", Status: gateway.HoldStatusSucceeded}, nil)
	f.bookings.On("ConfirmHold", mock.Anything, booking.ID, mock.MatchedBy(func(p *entity.Payment) bool {
		return p.BookingID == booking.ID &&
			p.Amount == 20.00 &&
			p.Status == entity.PaymentStatusCompleted &&
			p.TransactionID != nil && *p.TransactionID == "hold_123"
	})).Return(nil)

	resp, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.PaymentStatus)
	assert.Nil(t, resp.ExpiresAt)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, 20.00, resp.Payment.Amount)
	f.bookings.AssertExpectations(t)
}

func TestConfirmHoldUnknownHold(t *testing.T) {
	f := newSettlementFixture()

	f.bookings.On("FindByHoldID", mock.Anything, "hold_missing").Return(nil, nil)

	_, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{HoldID: "hold_missing"})

	assert.ErrorIs(t, err, entity.ErrPendingBookingNotFound)
}

func TestConfirmHoldIdempotent(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(3*time.Minute))
	booking.Status = entity.BookingStatusConfirmed
	booking.PaymentStatus = entity.PaymentStatusCompleted
	booking.ExpiresAt = nil

	transactionID := "hold_123"
	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.payments.On("FindByBookingID", mock.Anything, booking.ID).Return(&entity.Payment{
		Base:          entity.Base{ID: uuid.New()},
		BookingID:     booking.ID,
		Amount:        20.00,
		Status:        entity.PaymentStatusCompleted,
		Method:        "card",
		TransactionID: &transactionID,
	}, nil)

	resp, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
	require.NotNil(t, resp.Payment)
	// no new gateway verdict and no second payment on retry
	f.gw.AssertNotCalled(t, "GetHoldStatus", mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "ConfirmHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmHoldExpiredStatus(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(-time.Minute))
	booking.Status = entity.BookingStatusExpired

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(1, nil)

	_, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	assert.ErrorIs(t, err, entity.ErrHoldExpired)
	f.gw.AssertNotCalled(t, "GetHoldStatus", mock.Anything, mock.Anything)
}

func TestConfirmHoldExpiredByClock(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	// still pending because the sweeper has not run, but past its window
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(-time.Second))

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)

	_, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	assert.ErrorIs(t, err, entity.ErrHoldExpired)
	f.gw.AssertNotCalled(t, "GetHoldStatus", mock.Anything, mock.Anything)
}

func TestConfirmHoldPriceMismatch(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(3*time.Minute))

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)

	_, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 15.00,
	})

	assert.ErrorIs(t, err, entity.ErrPriceMismatch)
}

func TestConfirmHoldPaymentNotSuccessful(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(3*time.Minute))

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.gw.On("GetHoldStatus", mock.Anything, "hold_123").
		Return(&gateway.HoldStatus{HoldID: "hold_123", Status: gateway.HoldStatusPending}, nil)

	_, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	assert.ErrorIs(t, err, entity.ErrPaymentNotSuccessful)
	// the booking stays pending for a later retry
	f.bookings.AssertNotCalled(t, "ConfirmHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmHoldLostRaceIsSuccess(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()
	booking := pendingHold(showtimeID, "hold_123", time.Now().Add(3*time.Minute))

	f.bookings.On("FindByHoldID", mock.Anything, "hold_123").Return(booking, nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.gw.On("GetHoldStatus", mock.Anything, "hold_123").
		Return(&gateway.HoldStatus{HoldID: "hold_123", Status: gateway.HoldStatusSucceeded}, nil)
	f.bookings.On("ConfirmHold", mock.Anything, booking.ID, mock.Anything).Return(entity.ErrAlreadyConfirmed)
	f.payments.On("FindByBookingID", mock.Anything, booking.ID).Return(nil, nil)

	resp, err := f.service.ConfirmHold(context.Background(), &request.ConfirmHoldRequest{
		HoldID:     "hold_123",
		TotalPrice: 20.00,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.PaymentStatus)
	// the hold window no longer applies once the booking is confirmed
	assert.Nil(t, resp.ExpiresAt)
}

func TestCreateBookingLegacyPath(t *testing.T) {
	f := newSettlementFixture()
	showtimeID := uuid.New()

	f.showtimes.On("FindByID", mock.Anything, showtimeID).Return(testShowtime(showtimeID, 10.00, 50), nil)
	f.sweeper.On("SweepShowtime", mock.Anything, showtimeID).Return(0, nil)
	f.bookings.On("CreateConfirmed", mock.Anything,
		mock.MatchedBy(func(b *entity.Booking) bool {
			return b.Status == entity.BookingStatusConfirmed &&
				b.PaymentStatus == entity.PaymentStatusCompleted &&
				b.PaymentMethod == entity.PaymentMethodMock
		}),
		mock.MatchedBy(func(p *entity.Payment) bool {
			return p.Status == entity.PaymentStatusCompleted && p.TransactionID != nil
		}),
	).Return(nil)

	resp, err := f.service.CreateBooking(context.Background(), "", &request.CreateBookingRequest{
		ShowtimeID:    showtimeID.String(),
		CustomerName:  "Jane Moviegoer",
		CustomerEmail: "jane@example.com",
		NumberOfSeats: 2,
		TotalPrice:    20.00,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
	require.NotNil(t, resp.Payment)
	f.gw.AssertNotCalled(t, "OpenHold", mock.Anything, mock.Anything, mock.Anything)
}
