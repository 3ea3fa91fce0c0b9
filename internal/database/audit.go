package database

import (
	"time"

	"model-gateway/internal/audit"
)

// InsertAuditEvent appends one audit event. Events are immutable; there
// is no update path.
func (d *DB) InsertAuditEvent(e audit.Event) error {
	_, err := d.db.Exec(`
		INSERT INTO audit_logs (
			event_type, user_id, api_key_used, ip_address, endpoint, http_method,
			model_name, operation, record_ids, request_data, response_data,
			error_message, error_code, user_agent, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.UserID, boolInt(e.APIKeyUsed), e.IPAddress, e.Endpoint, e.HTTPMethod,
		e.Model, e.Operation, e.RecordIDs, e.RequestData, e.ResponseData,
		e.ErrorMessage, e.ErrorCode, e.UserAgent, e.Duration.Milliseconds(), e.CreatedAt)
	return err
}

// DeleteAuditEventsBefore implements the retention sweep.
func (d *DB) DeleteAuditEventsBefore(cutoff time.Time) (int64, error) {
	res, err := d.db.Exec("DELETE FROM audit_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListAuditEvents loads recent events newest first, for inspection and
// tests.
func (d *DB) ListAuditEvents(limit, offset int) ([]audit.Event, error) {
	rows, err := d.db.Query(`
		SELECT id, event_type, user_id, api_key_used, ip_address, endpoint, http_method,
		       model_name, operation, record_ids, request_data, response_data,
		       error_message, error_code, user_agent, duration_ms, created_at
		FROM audit_logs ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e          audit.Event
			kind       string
			apiKeyUsed int
			durationMs int64
		)
		err := rows.Scan(&e.ID, &kind, &e.UserID, &apiKeyUsed, &e.IPAddress, &e.Endpoint, &e.HTTPMethod,
			&e.Model, &e.Operation, &e.RecordIDs, &e.RequestData, &e.ResponseData,
			&e.ErrorMessage, &e.ErrorCode, &e.UserAgent, &durationMs, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		e.Kind = audit.Kind(kind)
		e.APIKeyUsed = apiKeyUsed != 0
		e.Duration = time.Duration(durationMs) * time.Millisecond
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountAuditEvents counts events, optionally filtered by kind.
func (d *DB) CountAuditEvents(kind audit.Kind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM audit_logs").Scan(&n)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM audit_logs WHERE event_type = ?", string(kind)).Scan(&n)
	}
	return n, err
}
