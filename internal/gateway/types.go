package gateway

import (
	"regexp"
	"strings"
)

// Principal is an authenticated caller. The gateway never mutates a
// principal; it only resolves one per request.
type Principal struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Active bool   `json:"active"`
}

// Reserved principal identifiers. Anonymous traffic shares a single
// rate window under AnonymousID; PublicID is substituted when API key
// enforcement is switched off.
const (
	AnonymousID = "anonymous"
	PublicID    = "public"
)

// Operation is one of the four permission classes a model can expose.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// Operations lists all valid operations in a stable order.
var Operations = []Operation{OpRead, OpCreate, OpWrite, OpDelete}

// ParseOperation normalizes a wire-level operation string. "unlink" is
// accepted as the historical alias for delete.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OpRead:
		return OpRead, true
	case OpCreate:
		return OpCreate, true
	case OpWrite:
		return OpWrite, true
	case OpDelete, Operation("unlink"):
		return OpDelete, true
	}
	return "", false
}

// methodOperations maps RPC method names to the operation class they
// require. Methods missing from this table are always denied.
var methodOperations = map[string]Operation{
	// read operations
	"read":                "read",
	"search":              "read",
	"search_read":         "read",
	"search_count":        "read",
	"name_search":         "read",
	"fields_get":          "read",
	"export_data":         "read",
	"default_get":         "read",
	"name_get":            "read",
	"get_metadata":        "read",
	"get_formview_id":     "read",
	"get_formview_action": "read",
	"read_group":          "read",
	// create operations
	"create":      "create",
	"copy":        "create",
	"name_create": "create",
	// write operations
	"write":            "write",
	"toggle_active":    "write",
	"action_archive":   "write",
	"action_unarchive": "write",
	// delete operations
	"unlink":        "delete",
	"action_delete": "delete",
}

// MapMethodToOperation resolves an RPC method name to its operation
// class. Underscore-prefixed (private) methods never map.
func MapMethodToOperation(method string) (Operation, bool) {
	method = strings.ToLower(strings.TrimSpace(method))
	if strings.HasPrefix(method, "_") {
		return "", false
	}
	op, ok := methodOperations[method]
	return op, ok
}

// AllowedMethods returns all RPC method names the gateway considers.
func AllowedMethods() []string {
	names := make([]string, 0, len(methodOperations))
	for m := range methodOperations {
		names = append(names, m)
	}
	return names
}

var modelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// SanitizeModelName validates a model name before any cache or store
// lookup. Only letters, digits, dots and underscores are accepted.
func SanitizeModelName(name string) (string, *Error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewError(KindBadRequest, "Model name cannot be empty")
	}
	if !modelNamePattern.MatchString(name) {
		return "", NewError(KindBadRequest, "Invalid model name format: %s", name)
	}
	return name, nil
}

// ModelInfo describes one exposed model for listing endpoints.
type ModelInfo struct {
	Model string `json:"model"`
	Name  string `json:"name"`
}
