package audit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	inserted  []Event
	insertErr error

	deletedBefore time.Time
	deleteCount   int64
}

func (f *fakeStore) InsertAuditEvent(e Event) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, e)
	return nil
}

func (f *fakeStore) DeleteAuditEventsBefore(cutoff time.Time) (int64, error) {
	f.deletedBefore = cutoff
	return f.deleteCount, nil
}

type fakeParams map[string]string

func (f fakeParams) GetParam(key, fallback string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return fallback
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRecordPersistsEvent(t *testing.T) {
	store := &fakeStore{}
	l := NewLogger(store, fakeParams{}, quietLogger())

	l.Record(Event{Kind: KindAuthSuccess, UserID: "alice"})

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d events, want 1", len(store.inserted))
	}
	e := store.inserted[0]
	if e.Kind != KindAuthSuccess || e.UserID != "alice" {
		t.Fatalf("event = %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be stamped")
	}
}

func TestRecordHonorsLoggingToggle(t *testing.T) {
	store := &fakeStore{}
	l := NewLogger(store, fakeParams{"gateway.enable_logging": "false"}, quietLogger())

	l.Record(Event{Kind: KindModelAccess})

	if len(store.inserted) != 0 {
		t.Fatalf("inserted %d events with logging off, want 0", len(store.inserted))
	}
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	l := NewLogger(store, fakeParams{}, quietLogger())

	// Must not panic or propagate.
	l.Record(Event{Kind: KindError})
}

func TestRecordTruncatesLongFields(t *testing.T) {
	store := &fakeStore{}
	l := NewLogger(store, fakeParams{}, quietLogger())

	long := strings.Repeat("x", maxTextLength+500)
	l.Record(Event{Kind: KindError, RequestData: long, ResponseData: long, ErrorMessage: long})

	e := store.inserted[0]
	for name, field := range map[string]string{
		"RequestData":  e.RequestData,
		"ResponseData": e.ResponseData,
		"ErrorMessage": e.ErrorMessage,
	} {
		if len(field) != maxTextLength+len(truncationMarker) {
			t.Errorf("%s length = %d, want %d", name, len(field), maxTextLength+len(truncationMarker))
		}
		if !strings.HasSuffix(field, truncationMarker) {
			t.Errorf("%s should end with the truncation marker", name)
		}
	}
}

func TestShortFieldsNotTruncated(t *testing.T) {
	store := &fakeStore{}
	l := NewLogger(store, fakeParams{}, quietLogger())

	l.Record(Event{Kind: KindError, ErrorMessage: "short"})

	if got := store.inserted[0].ErrorMessage; got != "short" {
		t.Fatalf("ErrorMessage = %q", got)
	}
}

func TestRetentionDays(t *testing.T) {
	cases := []struct {
		stored string
		want   int
	}{
		{"", 30},
		{"30", 30},
		{"0", 0},
		{"90", 90},
		{"forever", 30},
		{"-5", 30},
	}
	for _, tc := range cases {
		params := fakeParams{}
		if tc.stored != "" {
			params["gateway.log_retention_days"] = tc.stored
		}
		l := NewLogger(&fakeStore{}, params, quietLogger())
		if got := l.RetentionDays(); got != tc.want {
			t.Errorf("RetentionDays(stored=%q) = %d, want %d", tc.stored, got, tc.want)
		}
	}
}

func TestSweepOnce(t *testing.T) {
	store := &fakeStore{deleteCount: 7}
	l := NewLogger(store, fakeParams{"gateway.log_retention_days": "30"}, quietLogger())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	s := NewSweeper(l, time.Hour, quietLogger())

	if deleted := s.SweepOnce(); deleted != 7 {
		t.Fatalf("SweepOnce = %d, want 7", deleted)
	}
	wantCutoff := now.AddDate(0, 0, -30)
	if !store.deletedBefore.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", store.deletedBefore, wantCutoff)
	}
}

func TestSweepDisabledByZeroRetention(t *testing.T) {
	store := &fakeStore{deleteCount: 7}
	l := NewLogger(store, fakeParams{"gateway.log_retention_days": "0"}, quietLogger())
	s := NewSweeper(l, time.Hour, quietLogger())

	if deleted := s.SweepOnce(); deleted != 0 {
		t.Fatalf("SweepOnce = %d, want 0 with retention disabled", deleted)
	}
	if !store.deletedBefore.IsZero() {
		t.Fatal("no delete must be issued with retention 0")
	}
}
