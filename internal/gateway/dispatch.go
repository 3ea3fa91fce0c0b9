package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"model-gateway/internal/store"
)

// invoke maps the wire method to a record-store call. It returns the
// result plus the record identifiers involved, for the audit trail.
// Mapped methods with no narrow-interface equivalent are rejected as
// bad requests before reaching the store.
func (m *Mediator) invoke(ctx context.Context, req *Request) (interface{}, string, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))

	switch method {
	case "search_count":
		filter, err := filterArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		n, err := m.records.SearchCount(ctx, req.Model, filter)
		return n, "", err

	case "search", "search_read":
		filter, err := filterArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		fields := stringsArg(req.KWArgs, "fields")
		limit := intArg(req.KWArgs, "limit")
		offset := intArg(req.KWArgs, "offset")

		records, err := m.records.SearchRead(ctx, req.Model, filter, fields, limit, offset)
		if err != nil {
			return nil, "", err
		}
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			ids = append(ids, asID(rec["id"]))
		}
		if method == "search" {
			return ids, joinIDs(ids), nil
		}
		return records, joinIDs(ids), nil

	case "read":
		ids, err := idsArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		fields := stringsArg(req.KWArgs, "fields")
		if len(fields) == 0 {
			if len(req.Args) > 1 {
				fields = toStrings(req.Args[1])
			}
		}
		var out []store.Record
		for _, id := range ids {
			records, err := m.records.SearchRead(ctx, req.Model, store.Filter{"id": id}, fields, 1, 0)
			if err != nil {
				return nil, "", err
			}
			out = append(out, records...)
		}
		return out, joinIDs(ids), nil

	case "fields_get":
		fields, err := m.records.FieldsGet(ctx, req.Model)
		return fields, "", err

	case "create":
		values, err := valuesArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		id, err := m.records.Create(ctx, req.Model, values)
		if err != nil {
			return nil, "", err
		}
		return id, strconv.FormatInt(id, 10), nil

	case "write":
		ids, err := idsArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		values, err := valuesArg(req.Args, 1)
		if err != nil {
			return nil, "", err
		}
		ok, err := m.records.Write(ctx, req.Model, ids, values)
		return ok, joinIDs(ids), err

	case "unlink":
		ids, err := idsArg(req.Args, 0)
		if err != nil {
			return nil, "", err
		}
		ok, err := m.records.Unlink(ctx, req.Model, ids)
		return ok, joinIDs(ids), err

	default:
		return nil, "", NewError(KindBadRequest,
			"Method '%s' is not supported by this gateway.", req.Method)
	}
}

// filterArg extracts an equality filter from positional args. Both a
// plain field/value mapping and the triple-list domain form
// [["field", "=", value], ...] are accepted; only equality triples are
// supported.
func filterArg(args []interface{}, idx int) (store.Filter, error) {
	if len(args) <= idx || args[idx] == nil {
		return store.Filter{}, nil
	}

	switch v := args[idx].(type) {
	case map[string]interface{}:
		return store.Filter(v), nil
	case []interface{}:
		filter := store.Filter{}
		for _, clause := range v {
			triple, ok := clause.([]interface{})
			if !ok || len(triple) != 3 {
				return nil, NewError(KindBadRequest, "Malformed filter clause")
			}
			field, ok := triple[0].(string)
			if !ok {
				return nil, NewError(KindBadRequest, "Malformed filter clause")
			}
			if op, _ := triple[1].(string); op != "=" {
				return nil, NewError(KindBadRequest, "Unsupported filter operator '%v'", triple[1])
			}
			filter[field] = triple[2]
		}
		return filter, nil
	default:
		return nil, NewError(KindBadRequest, "Malformed filter argument")
	}
}

// idsArg parses a record-id list from positional args.
func idsArg(args []interface{}, idx int) ([]int64, error) {
	if len(args) <= idx {
		return nil, NewError(KindBadRequest, "Missing record ids")
	}

	switch v := args[idx].(type) {
	case []interface{}:
		ids := make([]int64, 0, len(v))
		for _, raw := range v {
			id := asID(raw)
			if id == 0 {
				return nil, NewError(KindBadRequest, "Malformed record id '%v'", raw)
			}
			ids = append(ids, id)
		}
		return ids, nil
	default:
		if id := asID(v); id != 0 {
			return []int64{id}, nil
		}
		return nil, NewError(KindBadRequest, "Malformed record ids")
	}
}

// valuesArg parses a field/value mapping from positional args.
func valuesArg(args []interface{}, idx int) (map[string]interface{}, error) {
	if len(args) <= idx {
		return nil, NewError(KindBadRequest, "Missing values")
	}
	values, ok := args[idx].(map[string]interface{})
	if !ok {
		return nil, NewError(KindBadRequest, "Malformed values argument")
	}
	return values, nil
}

func asID(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		id, _ := strconv.ParseInt(n, 10, 64)
		return id
	default:
		return 0
	}
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func stringsArg(kwargs map[string]interface{}, key string) []string {
	if kwargs == nil {
		return nil
	}
	return toStrings(kwargs[key])
}

func toStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

func intArg(kwargs map[string]interface{}, key string) int {
	if kwargs == nil {
		return 0
	}
	switch n := kwargs[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
