package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process RecordStore used by tests. It counts calls
// per method so tests can assert that rejected requests never reach
// the store.
type Memory struct {
	mu      sync.Mutex
	models  map[string]map[int64]Record
	nextID  map[string]int64
	Calls   map[string]int
	FailAll error
}

var _ RecordStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		models: make(map[string]map[int64]Record),
		nextID: make(map[string]int64),
		Calls:  make(map[string]int),
	}
}

// Seed declares a model and optionally loads records into it.
func (m *Memory) Seed(model string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[model]; !ok {
		m.models[model] = make(map[int64]Record)
	}
	for _, rec := range records {
		m.nextID[model]++
		id := m.nextID[model]
		rec["id"] = id
		m.models[model][id] = rec
	}
}

// CallCount returns how many store calls a method received.
func (m *Memory) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// TotalCalls returns the number of store calls across all methods.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.Calls {
		total += n
	}
	return total
}

func (m *Memory) record(method string) error {
	m.Calls[method]++
	return m.FailAll
}

func (m *Memory) ModelExists(_ context.Context, model string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("model_exists"); err != nil {
		return false, err
	}
	_, ok := m.models[model]
	return ok, nil
}

func (m *Memory) SearchCount(_ context.Context, model string, filter Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("search_count"); err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range m.models[model] {
		if matches(rec, filter) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SearchRead(_ context.Context, model string, filter Filter, fields []string, limit, offset int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("search_read"); err != nil {
		return nil, err
	}

	var out []Record
	var id int64
	max := m.nextID[model]
	skipped := 0
	for id = 1; id <= max; id++ {
		rec, ok := m.models[model][id]
		if !ok || !matches(rec, filter) {
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
	return out, nil
}

func (m *Memory) Create(_ context.Context, model string, values map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("create"); err != nil {
		return 0, err
	}
	if _, ok := m.models[model]; !ok {
		m.models[model] = make(map[int64]Record)
	}
	m.nextID[model]++
	id := m.nextID[model]
	rec := Record{"id": id}
	for k, v := range values {
		rec[k] = v
	}
	m.models[model][id] = rec
	return id, nil
}

func (m *Memory) Write(_ context.Context, model string, ids []int64, values map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("write"); err != nil {
		return false, err
	}
	for _, id := range ids {
		rec, ok := m.models[model][id]
		if !ok {
			return false, fmt.Errorf("record %s/%d does not exist", model, id)
		}
		for k, v := range values {
			rec[k] = v
		}
	}
	return true, nil
}

func (m *Memory) Unlink(_ context.Context, model string, ids []int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("unlink"); err != nil {
		return false, err
	}
	for _, id := range ids {
		if _, ok := m.models[model][id]; !ok {
			return false, fmt.Errorf("record %s/%d does not exist", model, id)
		}
		delete(m.models[model], id)
	}
	return true, nil
}

func (m *Memory) FieldsGet(_ context.Context, model string) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("fields_get"); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"id": map[string]interface{}{"type": "integer", "string": "id"},
	}
	for _, rec := range m.models[model] {
		for k, v := range rec {
			if _, seen := fields[k]; !seen {
				fields[k] = map[string]interface{}{"type": fieldType(v), "string": k}
			}
		}
	}
	return fields, nil
}
