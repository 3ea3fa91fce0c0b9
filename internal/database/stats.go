package database

import (
	"time"

	"model-gateway/internal/audit"
)

// UsageStats summarizes gateway traffic from the audit trail for a
// time range. Administrators read these through the database; there is
// no dashboard surface.
type UsageStats struct {
	TotalEvents   int64            `json:"total_events"`
	AuthFailures  int64            `json:"auth_failures"`
	RateLimited   int64            `json:"rate_limited"`
	Denied        int64            `json:"denied"`
	Errors        int64            `json:"errors"`
	ByOperation   map[string]int64 `json:"by_operation"`
	ByModel       map[string]int64 `json:"by_model"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	ActiveUserIDs int64            `json:"active_user_ids"`
}

// GetUsageStats aggregates audit events between start and end.
func (d *DB) GetUsageStats(start, end time.Time) (*UsageStats, error) {
	stats := &UsageStats{
		ByOperation: make(map[string]int64),
		ByModel:     make(map[string]int64),
	}

	err := d.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(duration_ms), 0),
		       COUNT(DISTINCT CASE WHEN user_id != '' THEN user_id END)
		FROM audit_logs
		WHERE created_at >= ? AND created_at < ?`,
		audit.KindAuthFailure, audit.KindRateLimit, audit.KindPermissionDenied, audit.KindError,
		start, end,
	).Scan(&stats.TotalEvents, &stats.AuthFailures, &stats.RateLimited,
		&stats.Denied, &stats.Errors, &stats.AvgDurationMS, &stats.ActiveUserIDs)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT operation, model_name, COUNT(*)
		FROM audit_logs
		WHERE created_at >= ? AND created_at < ? AND event_type = ?
		GROUP BY operation, model_name`,
		start, end, audit.KindModelAccess)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			operation string
			model     string
			count     int64
		)
		if err := rows.Scan(&operation, &model, &count); err != nil {
			return nil, err
		}
		if operation != "" {
			stats.ByOperation[operation] += count
		}
		if model != "" {
			stats.ByModel[model] += count
		}
	}
	return stats, rows.Err()
}
