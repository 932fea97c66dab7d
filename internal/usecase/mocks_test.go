package usecase

import (
	"context"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockShowtimeRepository struct {
	mock.Mock
}

func (m *MockShowtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Showtime), args.Error(1)
}

func (m *MockShowtimeRepository) ReserveSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error {
	args := m.Called(ctx, q, showtimeID, seats)
	return args.Error(0)
}

func (m *MockShowtimeRepository) ReleaseSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error {
	args := m.Called(ctx, q, showtimeID, seats)
	return args.Error(0)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByHoldID(ctx context.Context, holdID string) (*entity.Booking, error) {
	args := m.Called(ctx, holdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingRepository) FindExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBookingRepository) FindExpiredPendingByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBookingRepository) CreateHold(ctx context.Context, booking *entity.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) SetPaymentHold(ctx context.Context, bookingID uuid.UUID, holdID string) error {
	args := m.Called(ctx, bookingID, holdID)
	return args.Error(0)
}

func (m *MockBookingRepository) ConfirmHold(ctx context.Context, bookingID uuid.UUID, payment *entity.Payment) error {
	args := m.Called(ctx, bookingID, payment)
	return args.Error(0)
}

func (m *MockBookingRepository) ExpireHold(ctx context.Context, bookingID uuid.UUID) (int, error) {
	args := m.Called(ctx, bookingID)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) CreateConfirmed(ctx context.Context, booking *entity.Booking, payment *entity.Payment) error {
	args := m.Called(ctx, booking, payment)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, q database.Querier, payment *entity.Payment) error {
	args := m.Called(ctx, q, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkRefunded(ctx context.Context, q database.Querier, bookingID uuid.UUID) error {
	args := m.Called(ctx, q, bookingID)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) OpenHold(ctx context.Context, amount float64, customer gateway.CustomerMetadata) (*gateway.Hold, error) {
	args := m.Called(ctx, amount, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Hold), args.Error(1)
}

func (m *MockGateway) GetHoldStatus(ctx context.Context, holdID string) (*gateway.HoldStatus, error) {
	args := m.Called(ctx, holdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.HoldStatus), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, transactionID string) (*gateway.RefundResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSweeper) SweepShowtime(ctx context.Context, showtimeID uuid.UUID) (int, error) {
	args := m.Called(ctx, showtimeID)
	return args.Int(0), args.Error(1)
}

func (m *MockSweeper) Run(ctx context.Context) {
	m.Called(ctx)
}
