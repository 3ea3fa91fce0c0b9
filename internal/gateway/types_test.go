package gateway

import "testing"

func TestMapMethodToOperation(t *testing.T) {
	cases := []struct {
		method string
		op     Operation
		ok     bool
	}{
		{"search_read", OpRead, true},
		{"search", OpRead, true},
		{"search_count", OpRead, true},
		{"read", OpRead, true},
		{"fields_get", OpRead, true},
		{"create", OpCreate, true},
		{"copy", OpCreate, true},
		{"write", OpWrite, true},
		{"toggle_active", OpWrite, true},
		{"unlink", OpDelete, true},
		{"_private_method", "", false},
		{"__init__", "", false},
		{"run_cron_jobs", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		op, ok := MapMethodToOperation(tc.method)
		if ok != tc.ok {
			t.Errorf("MapMethodToOperation(%q) ok = %v, want %v", tc.method, ok, tc.ok)
			continue
		}
		if ok && op != tc.op {
			t.Errorf("MapMethodToOperation(%q) = %s, want %s", tc.method, op, tc.op)
		}
	}
}

func TestParseOperation(t *testing.T) {
	if op, ok := ParseOperation("unlink"); !ok || op != OpDelete {
		t.Errorf("ParseOperation(unlink) = %s, %v", op, ok)
	}
	if _, ok := ParseOperation("truncate"); ok {
		t.Error("ParseOperation(truncate) should fail")
	}
}

func TestSanitizeModelName(t *testing.T) {
	valid := []string{"res.partner", "product.template", "x_custom_model", "a", "A1.b_2"}
	for _, name := range valid {
		got, err := SanitizeModelName("  " + name + "  ")
		if err != nil {
			t.Errorf("SanitizeModelName(%q) unexpected error %v", name, err)
			continue
		}
		if got != name {
			t.Errorf("SanitizeModelName(%q) = %q", name, got)
		}
	}

	invalid := []string{"", "   ", "res partner", "res.partner;", "res/partner", "res.partner--", "model!"}
	for _, name := range invalid {
		if _, err := SanitizeModelName(name); err == nil {
			t.Errorf("SanitizeModelName(%q) should fail", name)
		} else if err.Kind != KindBadRequest {
			t.Errorf("SanitizeModelName(%q) kind = %s, want bad request", name, err.Kind)
		}
	}
}

func TestErrorWireCodes(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindBadRequest, 400, "E400"},
		{KindUnauthorized, 401, "E401"},
		{KindForbidden, 403, "E403"},
		{KindNotFound, 404, "E404"},
		{KindRateLimited, 429, "E429"},
		{KindServiceUnavailable, 503, "E503"},
		{KindInternal, 500, "E500"},
	}
	for _, tc := range cases {
		e := NewError(tc.kind, "boom")
		if e.HTTPStatus() != tc.status {
			t.Errorf("%s status = %d, want %d", tc.kind, e.HTTPStatus(), tc.status)
		}
		if e.WireCode() != tc.code {
			t.Errorf("%s code = %s, want %s", tc.kind, e.WireCode(), tc.code)
		}
	}
}
