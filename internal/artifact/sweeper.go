package artifact

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	sweepInterval = time.Hour
	startupDelay  = 5 * time.Second
)

// Sweeper drives the expiry sweep on a fixed schedule: once shortly after
// startup to reclaim anything left over from downtime, then hourly.
type Sweeper struct {
	store  *Store
	logger zerolog.Logger
}

func NewSweeper(store *Store, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logger.With().Str("service", "Sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	startup := time.NewTimer(startupDelay)
	defer startup.Stop()

	select {
	case <-ctx.Done():
		return
	case <-startup.C:
		s.sweep(ctx)
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.store.SweepExpired(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Sweep failed")
	}
}
