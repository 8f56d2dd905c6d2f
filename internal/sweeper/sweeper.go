// Package sweeper runs scheduled maintenance: purging stale session
// markers so abandoned browser sessions do not accumulate in memory.
package sweeper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"soph-gateway/internal/domain"
)

// Sweeper periodically removes stale SSO markers.
type Sweeper struct {
	markers  domain.MarkerStore
	interval time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a sweeper running every interval (minimum one minute).
func New(markers domain.MarkerStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		markers:  markers,
		interval: interval,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the purge job and begins running it.
func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("schedule marker sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("marker sweeper started", "interval", s.interval)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	if n := s.markers.PurgeExpired(time.Now()); n > 0 {
		s.logger.Info("purged stale sso markers", "count", n)
	}
}
