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

// ShowtimeRepository is the seat ledger. Reserve and Release are the only
// operations allowed to mutate available_seats; both run inside the caller's
// transaction so the seat movement commits or rolls back together with the
// booking row it belongs to.
type ShowtimeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)

	// ReserveSeats locks the showtime row, verifies availability and
	// decrements the counter. A reservation that would drive the count below
	// zero is rejected entirely.
	ReserveSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error

	// ReleaseSeats locks the showtime row and returns seats to the pool. A
	// release that would exceed the seating capacity indicates a double
	// release and fails with ErrSeatAccounting.
	ReleaseSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error
}

type showtimeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewShowtimeRepository(db database.PgxIface, log *zap.Logger) ShowtimeRepository {
	return &showtimeRepository{
		db:  db,
		log: log.With(zap.String("repository", "showtime")),
	}
}

func (r *showtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	query := `
		SELECT id, movie_id, auditorium_id, show_date, show_time, price,
		       seating_capacity, available_seats, created_at, updated_at
		FROM showtimes
		WHERE id = $1
	`

	var showtime entity.Showtime
	err := r.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.AuditoriumID,
		&showtime.ShowDate,
		&showtime.ShowTime,
		&showtime.Price,
		&showtime.SeatingCapacity,
		&showtime.AvailableSeats,
		&showtime.CreatedAt,
		&showtime.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find showtime by ID",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("find showtime by ID %s: %w", id.String(), err)
	}

	return &showtime, nil
}

func (r *showtimeRepository) ReserveSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error {
	// Exclusive lock for the whole check-and-decrement; without it two
	// reservations racing for the last seats could both pass the check.
	var available int
	err := q.QueryRow(ctx,
		`SELECT available_seats FROM showtimes WHERE id = $1 FOR UPDATE`,
		showtimeID,
	).Scan(&available)

	if err == pgx.ErrNoRows {
		return entity.ErrShowtimeNotFound
	}
	if err != nil {
		r.log.Error("Failed to lock showtime for reservation",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return fmt.Errorf("lock showtime %s: %w", showtimeID.String(), err)
	}

	if available < seats {
		return entity.ErrInsufficientSeats
	}

	_, err = q.Exec(ctx,
		`UPDATE showtimes SET available_seats = available_seats - $1, updated_at = NOW() WHERE id = $2`,
		seats, showtimeID,
	)
	if err != nil {
		r.log.Error("Failed to decrement available seats",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.Int("seats", seats),
		)
		return fmt.Errorf("reserve %d seats on showtime %s: %w", seats, showtimeID.String(), err)
	}

	return nil
}

func (r *showtimeRepository) ReleaseSeats(ctx context.Context, q database.Querier, showtimeID uuid.UUID, seats int) error {
	var available, capacity int
	err := q.QueryRow(ctx,
		`SELECT available_seats, seating_capacity FROM showtimes WHERE id = $1 FOR UPDATE`,
		showtimeID,
	).Scan(&available, &capacity)

	if err == pgx.ErrNoRows {
		return entity.ErrShowtimeNotFound
	}
	if err != nil {
		r.log.Error("Failed to lock showtime for release",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return fmt.Errorf("lock showtime %s: %w", showtimeID.String(), err)
	}

	if available+seats > capacity {
		// A booking's seats can only be returned once; exceeding capacity
		// means something released them twice.
		r.log.Error("Seat release would exceed capacity",
			zap.String("showtime_id", showtimeID.String()),
			zap.Int("available", available),
			zap.Int("capacity", capacity),
			zap.Int("seats", seats),
		)
		return entity.ErrSeatAccounting
	}

	_, err = q.Exec(ctx,
		`UPDATE showtimes SET available_seats = available_seats + $1, updated_at = NOW() WHERE id = $2`,
		seats, showtimeID,
	)
	if err != nil {
		r.log.Error("Failed to increment available seats",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.Int("seats", seats),
		)
		return fmt.Errorf("release %d seats on showtime %s: %w", seats, showtimeID.String(), err)
	}

	return nil
}
