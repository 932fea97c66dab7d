package usecase

import (
	"cinema-tickets/internal/data/repository"
	"cinema-tickets/internal/gateway"
	"cinema-tickets/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking      BookingService
	Settlement   SettlementService
	Cancellation CancellationService
	Sweeper      SweeperService
}

func NewService(repo *repository.Repository, gw gateway.Gateway, config *utils.Config, log *zap.Logger) *Service {
	sweeper := NewSweeperService(repo, config, log)

	return &Service{
		Booking:      NewBookingService(repo, log),
		Settlement:   NewSettlementService(repo, gw, sweeper, config, log),
		Cancellation: NewCancellationService(repo, gw, log),
		Sweeper:      sweeper,
	}
}
