package database

import (
	"database/sql"
	"fmt"
	"time"
)

// User is one row of the external user store mirrored into the gateway
// database. The gateway never mutates users beyond seeding.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUser inserts a user row.
func (d *DB) CreateUser(id, name string, active bool) error {
	_, err := d.db.Exec("INSERT INTO users (id, name, active) VALUES (?, ?, ?)", id, name, boolInt(active))
	if err != nil {
		return fmt.Errorf("failed to create user %s: %v", id, err)
	}
	return nil
}

// GetUser loads a user by id; returns nil when the user is unknown.
func (d *DB) GetUser(id string) (*User, error) {
	var (
		u      User
		active int
	)
	err := d.db.QueryRow("SELECT id, name, active FROM users WHERE id = ?", id).Scan(&u.ID, &u.Name, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Active = active != 0
	return &u, nil
}

// SetUserActive toggles a user's active flag.
func (d *DB) SetUserActive(id string, active bool) error {
	_, err := d.db.Exec("UPDATE users SET active = ? WHERE id = ?", boolInt(active), id)
	return err
}

// CreateAPIKey stores the hash of an API key for a user. The plain key
// is never persisted.
func (d *DB) CreateAPIKey(keyHash, userID string) error {
	_, err := d.db.Exec("INSERT INTO api_keys (key_hash, user_id) VALUES (?, ?)", keyHash, userID)
	if err != nil {
		return fmt.Errorf("failed to create api key for %s: %v", userID, err)
	}
	return nil
}

// ResolveAPIKey maps a key hash to the owning user id. Returns "" when
// the key is unknown or revoked.
func (d *DB) ResolveAPIKey(keyHash string) (string, error) {
	var userID string
	err := d.db.QueryRow(
		"SELECT user_id FROM api_keys WHERE key_hash = ? AND active = 1", keyHash).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	// Usage tracking is best effort.
	_, _ = d.db.Exec("UPDATE api_keys SET last_used_at = CURRENT_TIMESTAMP WHERE key_hash = ?", keyHash)

	return userID, nil
}

// RevokeAPIKey deactivates a key without deleting its row.
func (d *DB) RevokeAPIKey(keyHash string) error {
	_, err := d.db.Exec("UPDATE api_keys SET active = 0 WHERE key_hash = ?", keyHash)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
