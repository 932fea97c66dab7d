package repository

import (
	"context"
	"fmt"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	// Create inserts a payment inside the caller's transaction so the row
	// commits together with the booking transition that created it.
	Create(ctx context.Context, q database.Querier, payment *entity.Payment) error

	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)

	// MarkRefunded flips the completed payments of a booking to refunded
	// inside the caller's transaction.
	MarkRefunded(ctx context.Context, q database.Querier, bookingID uuid.UUID) error
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) Create(ctx context.Context, q database.Querier, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, status, method, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.Status,
		payment.Method,
		payment.TransactionID,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `
		SELECT id, booking_id, amount, status, method, transaction_id, created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment entity.Payment
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Status,
		&payment.Method,
		&payment.TransactionID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment by booking ID %s: %w", bookingID.String(), err)
	}

	return &payment, nil
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, q database.Querier, bookingID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE booking_id = $1 AND status = $3
	`

	_, err := q.Exec(ctx, query, bookingID, entity.PaymentStatusRefunded, entity.PaymentStatusCompleted)
	if err != nil {
		r.log.Error("Failed to mark payments refunded",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("mark payments refunded for booking %s: %w", bookingID.String(), err)
	}

	return nil
}
