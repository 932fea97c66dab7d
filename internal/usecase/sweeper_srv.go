package usecase

import (
	"context"
	"errors"
	"time"

	"cinema-tickets/internal/data/entity"
	"cinema-tickets/internal/data/repository"
	"cinema-tickets/pkg/metrics"
	"cinema-tickets/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweeperService reclaims seats from unpaid holds whose window has elapsed.
// Expiry is derived purely from the persisted expires_at timestamps, so the
// sweep survives restarts and can run on every instance concurrently.
type SweeperService interface {
	// SweepExpired runs one batch pass over all stale pending holds.
	// Bookings are processed independently; one failure does not block the
	// rest. Returns the number of holds reclaimed.
	SweepExpired(ctx context.Context) (int, error)

	// SweepShowtime reclaims stale holds for a single showtime. The
	// settlement coordinator calls this before checking availability so
	// stale holds never falsely block a purchase.
	SweepShowtime(ctx context.Context, showtimeID uuid.UUID) (int, error)

	// Run drives periodic sweeps until ctx is cancelled.
	Run(ctx context.Context)
}

type sweeperService struct {
	repo     *repository.Repository
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewSweeperService(repo *repository.Repository, config *utils.Config, log *zap.Logger) SweeperService {
	return &sweeperService{
		repo:     repo,
		interval: config.Booking.SweepInterval,
		batch:    config.Booking.SweepBatch,
		log:      log.With(zap.String("service", "sweeper")),
	}
}

func (s *sweeperService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.Booking.FindExpiredPending(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	return s.expire(ctx, ids), nil
}

func (s *sweeperService) SweepShowtime(ctx context.Context, showtimeID uuid.UUID) (int, error) {
	ids, err := s.repo.Booking.FindExpiredPendingByShowtime(ctx, showtimeID)
	if err != nil {
		return 0, err
	}

	return s.expire(ctx, ids), nil
}

func (s *sweeperService) expire(ctx context.Context, ids []uuid.UUID) int {
	swept := 0
	for _, id := range ids {
		seats, err := s.repo.Booking.ExpireHold(ctx, id)
		if err == nil {
			swept++
			metrics.HoldsExpired.Inc()
			metrics.SeatsReleased.Add(float64(seats))
			continue
		}

		// Another instance, a confirm or a cancel won the transition race;
		// the seats are accounted for either way.
		if errors.Is(err, entity.ErrInvalidStateTransition) || errors.Is(err, entity.ErrBookingNotFound) {
			s.log.Debug("Hold already resolved, skipping",
				zap.String("booking_id", id.String()),
			)
			continue
		}

		s.log.Error("Failed to expire hold",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
	}

	if swept > 0 {
		s.log.Info("Expired holds reclaimed", zap.Int("count", swept))
	}
	return swept
}

func (s *sweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Hold expiry sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Hold expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.log.Error("Sweep pass failed", zap.Error(err))
			}
		}
	}
}
