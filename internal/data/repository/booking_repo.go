package repository

import (
	"context"
	"fmt"
	"time"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingRepository owns the booking lifecycle. Every state transition is a
// single transaction that locks the booking row, verifies the precondition
// state and only then writes the new state, so concurrent transitions can
// never repeat each other's side effects.
type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByHoldID(ctx context.Context, holdID string) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// Sweep queries
	FindExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error)
	FindExpiredPendingByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]uuid.UUID, error)

	// Transitions, one transaction each
	CreateHold(ctx context.Context, booking *entity.Booking) error
	SetPaymentHold(ctx context.Context, bookingID uuid.UUID, holdID string) error
	ConfirmHold(ctx context.Context, bookingID uuid.UUID, payment *entity.Payment) error
	// ExpireHold returns the number of seats it released.
	ExpireHold(ctx context.Context, bookingID uuid.UUID) (int, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	CreateConfirmed(ctx context.Context, booking *entity.Booking, payment *entity.Payment) error
}

type bookingRepository struct {
	db       database.PgxIface
	ledger   ShowtimeRepository
	payments PaymentRepository
	log      *zap.Logger
}

func NewBookingRepository(db database.PgxIface, ledger ShowtimeRepository, payments PaymentRepository, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:       db,
		ledger:   ledger,
		payments: payments,
		log:      log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, order_id, user_id, showtime_id, customer_name, customer_email,
	customer_phone, number_of_seats, total_price, status, payment_status,
	payment_method, payment_hold_id, expires_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.OrderID,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.CustomerPhone,
		&booking.NumberOfSeats,
		&booking.TotalPrice,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.PaymentMethod,
		&booking.PaymentHoldID,
		&booking.ExpiresAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByHoldID(ctx context.Context, holdID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_hold_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, holdID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by hold ID",
			zap.Error(err),
			zap.String("hold_id", holdID),
		)
		return nil, fmt.Errorf("find booking by hold ID %s: %w", holdID, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate booking rows", zap.Error(err))
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND expires_at <= NOW()
		ORDER BY expires_at
		LIMIT $2
	`
	return r.queryIDs(ctx, query, entity.BookingStatusPending, limit)
}

func (r *bookingRepository) FindExpiredPendingByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND showtime_id = $2 AND expires_at <= NOW()
	`
	return r.queryIDs(ctx, query, entity.BookingStatusPending, showtimeID)
}

func (r *bookingRepository) queryIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query expired pending bookings", zap.Error(err))
		return nil, fmt.Errorf("query expired pending bookings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate expired booking ids", zap.Error(err))
		return nil, fmt.Errorf("iterate expired booking ids: %w", err)
	}

	return ids, nil
}

// CreateHold reserves seats and inserts the pending booking in one
// transaction. Seats are spoken for from this moment, not from payment.
func (r *bookingRepository) CreateHold(ctx context.Context, booking *entity.Booking) error {
	err := database.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := r.ledger.ReserveSeats(ctx, tx, booking.ShowtimeID, booking.NumberOfSeats); err != nil {
			return err
		}

		return r.insert(ctx, tx, booking)
	})

	if err != nil {
		return err
	}

	r.log.Info("Pending hold created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.Int("seats", booking.NumberOfSeats),
		zap.Timep("expires_at", booking.ExpiresAt),
	)
	return nil
}

// CreateConfirmed is the legacy same-transaction path for non-gateway payment
// methods: reservation, confirmed booking and payment commit atomically.
func (r *bookingRepository) CreateConfirmed(ctx context.Context, booking *entity.Booking, payment *entity.Payment) error {
	err := database.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := r.ledger.ReserveSeats(ctx, tx, booking.ShowtimeID, booking.NumberOfSeats); err != nil {
			return err
		}

		if err := r.insert(ctx, tx, booking); err != nil {
			return err
		}

		return r.payments.Create(ctx, tx, payment)
	})

	if err != nil {
		return err
	}

	r.log.Info("Booking created and paid",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.Int("seats", booking.NumberOfSeats),
		zap.String("payment_method", booking.PaymentMethod),
	)
	return nil
}

func (r *bookingRepository) insert(ctx context.Context, q database.Querier, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, order_id, user_id, showtime_id, customer_name, customer_email,
		                      customer_phone, number_of_seats, total_price, status, payment_status,
		                      payment_method, payment_hold_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := q.Exec(ctx, query,
		booking.ID,
		booking.OrderID,
		booking.UserID,
		booking.ShowtimeID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		booking.NumberOfSeats,
		booking.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentMethod,
		booking.PaymentHoldID,
		booking.ExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to insert booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
		)
		return fmt.Errorf("insert booking %s: %w", booking.OrderID, err)
	}

	return nil
}

func (r *bookingRepository) SetPaymentHold(ctx context.Context, bookingID uuid.UUID, holdID string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE bookings SET payment_hold_id = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		bookingID, holdID, entity.BookingStatusPending,
	)
	if err != nil {
		r.log.Error("Failed to set payment hold",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("hold_id", holdID),
		)
		return fmt.Errorf("set payment hold on booking %s: %w", bookingID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return entity.ErrPendingBookingNotFound
	}

	return nil
}

// lockBooking reads the booking row under an exclusive lock inside tx.
func (r *bookingRepository) lockBooking(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(tx.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking %s: %w", bookingID.String(), err)
	}

	return booking, nil
}

// ConfirmHold settles a pending hold. Seats were already deducted when the
// hold was opened, so the ledger is untouched here.
func (r *bookingRepository) ConfirmHold(ctx context.Context, bookingID uuid.UUID, payment *entity.Payment) error {
	err := database.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		booking, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		switch booking.Status {
		case entity.BookingStatusConfirmed:
			return entity.ErrAlreadyConfirmed
		case entity.BookingStatusExpired:
			return entity.ErrHoldExpired
		case entity.BookingStatusCancelled:
			return entity.ErrInvalidStateTransition
		}

		// A hold past its window is expired even before the sweeper ran.
		if booking.HoldExpired(time.Now()) {
			return entity.ErrHoldExpired
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET status = $2, payment_status = $3, expires_at = NULL, updated_at = NOW() WHERE id = $1`,
			bookingID, entity.BookingStatusConfirmed, entity.PaymentStatusCompleted,
		)
		if err != nil {
			return fmt.Errorf("confirm booking %s: %w", bookingID.String(), err)
		}

		return r.payments.Create(ctx, tx, payment)
	})

	if err != nil {
		return err
	}

	r.log.Info("Hold confirmed",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_id", payment.ID.String()),
	)
	return nil
}

// ExpireHold reclaims the seats of a stale pending hold. Status write and
// seat release share one transaction; a crash can never leak seats or release
// them twice.
func (r *bookingRepository) ExpireHold(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var released int

	err := database.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		booking, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != entity.BookingStatusPending {
			return entity.ErrInvalidStateTransition
		}
		if !booking.HoldExpired(time.Now()) {
			return entity.ErrInvalidStateTransition
		}

		if err := r.ledger.ReleaseSeats(ctx, tx, booking.ShowtimeID, booking.NumberOfSeats); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET status = $2, payment_status = $3, expires_at = NULL, updated_at = NOW() WHERE id = $1`,
			bookingID, entity.BookingStatusExpired, entity.PaymentStatusFailed,
		)
		if err != nil {
			return fmt.Errorf("expire booking %s: %w", bookingID.String(), err)
		}

		released = booking.NumberOfSeats
		return nil
	})

	if err != nil {
		return 0, err
	}

	r.log.Info("Hold expired, seats reclaimed",
		zap.String("booking_id", bookingID.String()),
		zap.Int("seats_released", released),
	)
	return released, nil
}

// CancelBooking reverses a pending or confirmed booking: seats return to the
// ledger and the status flips in the same transaction. Cancelling twice fails
// with ErrAlreadyCancelled instead of repeating side effects.
func (r *bookingRepository) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	var cancelled *entity.Booking

	err := database.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		booking, err := r.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		switch booking.Status {
		case entity.BookingStatusCancelled:
			return entity.ErrAlreadyCancelled
		case entity.BookingStatusExpired:
			// The sweeper already released these seats.
			return entity.ErrInvalidStateTransition
		}

		if err := r.ledger.ReleaseSeats(ctx, tx, booking.ShowtimeID, booking.NumberOfSeats); err != nil {
			return err
		}

		hadCompletedPayment := booking.PaymentStatus == entity.PaymentStatusCompleted
		newPaymentStatus := entity.PaymentStatusFailed
		if hadCompletedPayment {
			newPaymentStatus = entity.PaymentStatusRefunded
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET status = $2, payment_status = $3, expires_at = NULL, updated_at = NOW() WHERE id = $1`,
			bookingID, entity.BookingStatusCancelled, newPaymentStatus,
		)
		if err != nil {
			return fmt.Errorf("cancel booking %s: %w", bookingID.String(), err)
		}

		if hadCompletedPayment {
			if err := r.payments.MarkRefunded(ctx, tx, bookingID); err != nil {
				return err
			}
		}

		booking.Status = entity.BookingStatusCancelled
		booking.PaymentStatus = newPaymentStatus
		booking.ExpiresAt = nil
		cancelled = booking
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.log.Info("Booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("order_id", cancelled.OrderID),
		zap.Int("seats_released", cancelled.NumberOfSeats),
	)
	return cancelled, nil
}
