package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically deletes audit events older than the configured
// retention window. It is the gateway's only long-lived background
// task.
type Sweeper struct {
	sink     *Logger
	interval time.Duration
	log      *logrus.Entry
}

func NewSweeper(sink *Logger, interval time.Duration, log *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		sink:     sink,
		interval: interval,
		log:      log.WithField("component", "audit_sweeper"),
	}
}

// Start blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Starting audit retention sweeper")

	for {
		select {
		case <-ticker.C:
			s.SweepOnce()
		case <-ctx.Done():
			s.log.Info("Stopping audit retention sweeper")
			return
		}
	}
}

// SweepOnce deletes events past retention. A retention of 0 days keeps
// events forever.
func (s *Sweeper) SweepOnce() int64 {
	days := s.sink.RetentionDays()
	if days <= 0 {
		return 0
	}

	cutoff := s.sink.now().UTC().AddDate(0, 0, -days)
	deleted, err := s.sink.store.DeleteAuditEventsBefore(cutoff)
	if err != nil {
		s.log.WithError(err).Error("Audit retention sweep failed")
		return 0
	}
	if deleted > 0 {
		s.log.WithFields(logrus.Fields{"deleted": deleted, "retention_days": days}).Info("Cleaned up old audit events")
	}
	return deleted
}
