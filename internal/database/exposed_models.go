package database

import (
	"database/sql"
	"fmt"
	"time"
)

// ExposedModel is the durable permission record for one model name.
// Unique per model; active=false makes the model behave as not exposed
// without losing the configuration.
type ExposedModel struct {
	ID          int64     `json:"id"`
	ModelName   string    `json:"model"`
	DisplayName string    `json:"name"`
	Active      bool      `json:"active"`
	AllowRead   bool      `json:"allow_read"`
	AllowCreate bool      `json:"allow_create"`
	AllowWrite  bool      `json:"allow_write"`
	AllowDelete bool      `json:"allow_delete"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const exposedModelColumns = "id, model_name, display_name, active, allow_read, allow_create, allow_write, allow_delete, notes"

func scanExposedModel(row interface{ Scan(...interface{}) error }) (*ExposedModel, error) {
	var (
		m                                       ExposedModel
		active, aRead, aCreate, aWrite, aDelete int
	)
	err := row.Scan(&m.ID, &m.ModelName, &m.DisplayName, &active, &aRead, &aCreate, &aWrite, &aDelete, &m.Notes)
	if err != nil {
		return nil, err
	}
	m.Active = active != 0
	m.AllowRead = aRead != 0
	m.AllowCreate = aCreate != 0
	m.AllowWrite = aWrite != 0
	m.AllowDelete = aDelete != 0
	return &m, nil
}

// UpsertExposedModel creates or updates the permission record for a
// model name.
func (d *DB) UpsertExposedModel(m ExposedModel) error {
	_, err := d.db.Exec(`
		INSERT INTO exposed_models (model_name, display_name, active, allow_read, allow_create, allow_write, allow_delete, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(model_name) DO UPDATE SET
			display_name = excluded.display_name,
			active = excluded.active,
			allow_read = excluded.allow_read,
			allow_create = excluded.allow_create,
			allow_write = excluded.allow_write,
			allow_delete = excluded.allow_delete,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`,
		m.ModelName, m.DisplayName, boolInt(m.Active),
		boolInt(m.AllowRead), boolInt(m.AllowCreate), boolInt(m.AllowWrite), boolInt(m.AllowDelete), m.Notes)
	if err != nil {
		return fmt.Errorf("failed to upsert exposed model %s: %v", m.ModelName, err)
	}
	return nil
}

// GetExposedModel loads one permission record; nil when no row exists
// for the model name.
func (d *DB) GetExposedModel(modelName string) (*ExposedModel, error) {
	row := d.db.QueryRow(
		"SELECT "+exposedModelColumns+" FROM exposed_models WHERE model_name = ?", modelName)
	m, err := scanExposedModel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListExposedModels returns permission records, active ones only when
// activeOnly is set, ordered by model name.
func (d *DB) ListExposedModels(activeOnly bool) ([]ExposedModel, error) {
	query := "SELECT " + exposedModelColumns + " FROM exposed_models"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY model_name"

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []ExposedModel
	for rows.Next() {
		m, err := scanExposedModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// SetExposedModelActive is the soft toggle: the record is kept but the
// model stops being exposed.
func (d *DB) SetExposedModelActive(modelName string, active bool) error {
	_, err := d.db.Exec(
		"UPDATE exposed_models SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE model_name = ?",
		boolInt(active), modelName)
	return err
}

// CountExposedModels counts active permission records.
func (d *DB) CountExposedModels() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM exposed_models WHERE active = 1").Scan(&n)
	return n, err
}
