package database

import "database/sql"

// GetParam returns the value of a configuration parameter, or fallback
// when the key is absent or the lookup fails. Failing toward the
// fallback keeps the gateway's defaults authoritative.
func (d *DB) GetParam(key, fallback string) string {
	var value string
	err := d.db.QueryRow("SELECT value FROM config_params WHERE key = ?", key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

// SetParam writes a configuration parameter, inserting or replacing.
func (d *DB) SetParam(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO config_params (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

// HasParam reports whether a key is explicitly set.
func (d *DB) HasParam(key string) bool {
	var one int
	err := d.db.QueryRow("SELECT 1 FROM config_params WHERE key = ?", key).Scan(&one)
	return err != sql.ErrNoRows && err == nil
}
