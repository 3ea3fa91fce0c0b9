package audit

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink receives audit events. Record is fire-and-forget: it must never
// return an error to the caller and must never block the mediating
// decision.
type Sink interface {
	Record(event Event)
}

// Store persists events; implemented by the database layer.
type Store interface {
	InsertAuditEvent(event Event) error
	DeleteAuditEventsBefore(cutoff time.Time) (int64, error)
}

// paramStore is the slice of the configuration store the sink needs.
type paramStore interface {
	GetParam(key, fallback string) string
}

const (
	paramEnableLogging    = "gateway.enable_logging"
	paramLogRetentionDays = "gateway.log_retention_days"
)

// Logger is the standard Sink: it persists bounded events through a
// Store and reports persistence failures on a side channel only.
type Logger struct {
	store  Store
	params paramStore
	log    *logrus.Entry
	now    func() time.Time
}

func NewLogger(store Store, params paramStore, log *logrus.Logger) *Logger {
	return &Logger{
		store:  store,
		params: params,
		log:    log.WithField("component", "audit"),
		now:    time.Now,
	}
}

// Record persists one event. Persistence failures are swallowed and
// logged; the caller never sees them.
func (l *Logger) Record(event Event) {
	if l.params.GetParam(paramEnableLogging, "true") != "true" {
		return
	}

	event = event.bounded()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now().UTC()
	}

	if err := l.store.InsertAuditEvent(event); err != nil {
		l.log.WithError(err).WithField("event_type", event.Kind).Warn("Failed to persist audit event")
	}
}

// RetentionDays returns the configured retention window in days;
// 0 disables the sweep entirely.
func (l *Logger) RetentionDays() int {
	days, err := strconv.Atoi(l.params.GetParam(paramLogRetentionDays, "30"))
	if err != nil || days < 0 {
		return 30
	}
	return days
}

// Discard is a Sink that drops every event; used in tests and as a
// safe default when no store is wired.
type Discard struct{}

func (Discard) Record(Event) {}
