// Package store defines the narrow record-store interface the gateway
// mediates access to, plus two implementations: a sqlite-backed JSON
// document store and an in-memory store for tests. The mediator only
// ever sees the interface; whatever storage engine sits behind it is
// none of the gateway's business.
package store

import (
	"context"
	"fmt"
	"reflect"
)

// Filter is an equality filter over record fields. An empty filter
// matches every record of the model.
type Filter map[string]interface{}

// Record is one stored document, always carrying its "id" field.
type Record map[string]interface{}

// RecordStore is the collaborator the mediator dispatches allowed
// calls to. Every method takes a context; the mediator attaches the
// configured deadline before calling.
type RecordStore interface {
	// ModelExists reports whether the model is known to the store at
	// all, independent of gateway exposure.
	ModelExists(ctx context.Context, model string) (bool, error)

	SearchCount(ctx context.Context, model string, filter Filter) (int, error)
	SearchRead(ctx context.Context, model string, filter Filter, fields []string, limit, offset int) ([]Record, error)
	Create(ctx context.Context, model string, values map[string]interface{}) (int64, error)
	Write(ctx context.Context, model string, ids []int64, values map[string]interface{}) (bool, error)
	Unlink(ctx context.Context, model string, ids []int64) (bool, error)
	FieldsGet(ctx context.Context, model string) (map[string]interface{}, error)
}

// project reduces a record to the requested fields. The id field is
// always included. An empty field list keeps everything.
func project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec
	}
	out := Record{"id": rec["id"]}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// matches reports whether a record satisfies an equality filter.
func matches(rec Record, filter Filter) bool {
	for k, want := range filter {
		if !looseEqual(rec[k], want) {
			return false
		}
	}
	return true
}

// looseEqual compares filter values against stored values. JSON
// decoding yields float64 where RPC argument parsing yields int64, so
// numeric comparison falls back to the printed form.
func looseEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
