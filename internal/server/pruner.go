package server

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scdash-dev/scdash/internal/models"
)

// startPruner schedules removal of revocations whose tokens have expired
func (s *Server) startPruner() error {
	c := cron.New()
	_, err := c.AddFunc(s.config.Auth.PruneSchedule, func() {
		if _, err := s.pruneRevokedTokens(time.Now()); err != nil {
			s.logger.Error().Err(err).Msg("Failed to prune revoked tokens")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.config.Auth.PruneSchedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info().Str("schedule", s.config.Auth.PruneSchedule).Msg("Revoked token pruner started")
	return nil
}

// pruneRevokedTokens deletes revocations that expired before now. An expired
// token is rejected on its own, so the row is no longer needed.
func (s *Server) pruneRevokedTokens(now time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired revocations: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.metrics.tokensPruned.Add(float64(result.RowsAffected))
		s.logger.Info().Int64("count", result.RowsAffected).Msg("Pruned expired token revocations")
	}
	return result.RowsAffected, nil
}
