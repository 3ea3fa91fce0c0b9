package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// SQLite is a generic JSON document store over the records table. It
// exists so the gateway has a real storage engine behind the
// RecordStore interface; a production deployment would adapt its own
// ORM instead.
type SQLite struct {
	db *sql.DB

	mu       sync.RWMutex
	declared map[string]struct{}
}

var _ RecordStore = (*SQLite)(nil)

// NewSQLite wraps an already-open database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, declared: make(map[string]struct{})}
}

// DeclareModel registers a model name as existing even before any
// record is stored under it.
func (s *SQLite) DeclareModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared[model] = struct{}{}
}

// ModelExists checks declared models first, then falls back to the
// records table.
func (s *SQLite) ModelExists(ctx context.Context, model string) (bool, error) {
	s.mu.RLock()
	_, ok := s.declared[model]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM records WHERE model = ? LIMIT 1", model).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) SearchCount(ctx context.Context, model string, filter Filter) (int, error) {
	records, err := s.SearchRead(ctx, model, filter, nil, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *SQLite) SearchRead(ctx context.Context, model string, filter Filter, fields []string, limit, offset int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM records WHERE model = ? ORDER BY id", model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Filtering happens on the decoded documents; the table stores
	// opaque JSON.
	var out []Record
	skipped := 0
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		rec := Record{}
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("corrupt record %s/%d: %v", model, id, err)
		}
		rec["id"] = id
		if !matches(rec, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, project(rec, fields))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func (s *SQLite) Create(ctx context.Context, model string, values map[string]interface{}) (int64, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return 0, err
	}

	var next int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE model = ?", model).Scan(&next); err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO records (model, id, data) VALUES (?, ?, ?)", model, next, string(data)); err != nil {
		return 0, err
	}
	s.DeclareModel(model)
	return next, nil
}

func (s *SQLite) Write(ctx context.Context, model string, ids []int64, values map[string]interface{}) (bool, error) {
	for _, id := range ids {
		var data string
		err := s.db.QueryRowContext(ctx,
			"SELECT data FROM records WHERE model = ? AND id = ?", model, id).Scan(&data)
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("record %s/%d does not exist", model, id)
		}
		if err != nil {
			return false, err
		}

		rec := map[string]interface{}{}
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return false, fmt.Errorf("corrupt record %s/%d: %v", model, id, err)
		}
		for k, v := range values {
			rec[k] = v
		}
		merged, err := json.Marshal(rec)
		if err != nil {
			return false, err
		}
		if _, err := s.db.ExecContext(ctx,
			"UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE model = ? AND id = ?",
			string(merged), model, id); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *SQLite) Unlink(ctx context.Context, model string, ids []int64) (bool, error) {
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE model = ? AND id = ?", model, id)
		if err != nil {
			return false, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return false, fmt.Errorf("record %s/%d does not exist", model, id)
		}
	}
	return true, nil
}

// FieldsGet derives a field description from the stored documents.
func (s *SQLite) FieldsGet(ctx context.Context, model string) (map[string]interface{}, error) {
	records, err := s.SearchRead(ctx, model, nil, nil, 100, 0)
	if err != nil {
		return nil, err
	}

	names := map[string]string{"id": "integer"}
	for _, rec := range records {
		for k, v := range rec {
			if _, seen := names[k]; !seen {
				names[k] = fieldType(v)
			}
		}
	}

	fields := make(map[string]interface{}, len(names))
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields[k] = map[string]interface{}{"type": names[k], "string": k}
	}
	return fields, nil
}

func fieldType(v interface{}) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64, int64, int:
		return "number"
	case string:
		return "char"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	default:
		return "char"
	}
}
