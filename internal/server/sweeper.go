package server

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chainlabs/questline/internal/models"
)

// DefaultSweepInterval is how often idle sessions are checked.
const DefaultSweepInterval = 5 * time.Minute

// sweeper deactivates sessions whose last activity is older than the
// idle timeout. Deactivated sessions fail token verification on the
// next request.
type sweeper struct {
	db          *gorm.DB
	idleTimeout time.Duration
	cron        *cron.Cron
	logger      *zap.Logger
}

func newSweeper(db *gorm.DB, idleTimeout, interval time.Duration, logger *zap.Logger) *sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &sweeper{
		db:          db,
		idleTimeout: idleTimeout,
		cron:        cron.New(),
		logger:      logger,
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.sweep))
	return s
}

func (s *sweeper) start() { s.cron.Start() }

func (s *sweeper) stop() { s.cron.Stop() }

func (s *sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-s.idleTimeout)
	result := s.db.Model(&models.Session{}).
		Where("is_active = ? AND last_activity < ?", true, cutoff).
		Update("is_active", false)
	if result.Error != nil {
		s.logger.Error("session sweep failed", zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info("deactivated idle sessions", zap.Int64("count", result.RowsAffected))
	}
}
