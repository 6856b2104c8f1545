package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"popup-shop/internal/domain/ports/repository"
	"popup-shop/internal/infra/logging"
	"popup-shop/internal/infra/metrics"
	"popup-shop/internal/usecase"
)

// ExpirySweeper periodically closes windows whose expiry job never arrived
// and refreshes the shop gauges.
type ExpirySweeper struct {
	interval time.Duration
	limit    int
	actUC    usecase.ActivationUseCase
	shops    repository.ShopRepository
	log      *zerolog.Logger
}

func NewExpirySweeper(interval time.Duration, limit int, actUC usecase.ActivationUseCase, shops repository.ShopRepository, logger *zerolog.Logger) *ExpirySweeper {
	swLog := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{
		interval: interval,
		limit:    limit,
		actUC:    actUC,
		shops:    shops,
		log:      &swLog,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("Starting expiry sweeper")
	// One pass at boot covers jobs lost while the process was down.
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many shops it deactivated.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	defer logging.TraceDuration(s.log, "ExpirySweeper.Sweep")()
	n, err := s.actUC.ExpireOverdue(ctx, s.limit)
	if err != nil {
		s.log.Error().Err(err).Msg("overdue sweep error")
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("overdue shops deactivated")
	}

	counts, err := s.shops.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		s.log.Warn().Err(err).Msg("count shops by status failed")
		return n
	}
	metrics.SetShopsTotal(counts)
	return n
}
