package gateway

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"model-gateway/internal/audit"
	"model-gateway/internal/store"
)

type fakeParams struct {
	values map[string]string
}

func (f *fakeParams) GetParam(key, fallback string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return fallback
}

func (f *fakeParams) SetParam(key, value string) error {
	f.values[key] = value
	return nil
}

// fakeRegistry answers from in-memory tables and counts lookups so
// tests can assert which checks ran.
type fakeRegistry struct {
	enabled    bool
	exposed    map[string]bool
	operations map[string]bool // keyed model+"-"+op
	lookups    int
}

func (f *fakeRegistry) GatewayEnabled() bool { return f.enabled }

func (f *fakeRegistry) ModelExposed(model string) bool {
	f.lookups++
	return f.exposed[model]
}

func (f *fakeRegistry) OperationAllowed(model string, op Operation) bool {
	f.lookups++
	return f.operations[model+"-"+string(op)]
}

func (f *fakeRegistry) ModelOperations(model string) map[string]bool {
	out := map[string]bool{}
	for _, op := range Operations {
		out[string(op)] = f.operations[model+"-"+string(op)]
	}
	return out
}

func (f *fakeRegistry) EnabledModels() []ModelInfo {
	infos := []ModelInfo{}
	for m, ok := range f.exposed {
		if ok {
			infos = append(infos, ModelInfo{Model: m, Name: m})
		}
	}
	return infos
}

func (f *fakeRegistry) EnabledModelCount() int { return len(f.EnabledModels()) }

type fakeValidator struct {
	principals map[string]*Principal
}

func (f *fakeValidator) Validate(rawKey, ip string) *Principal {
	return f.principals[rawKey]
}

type fakeLimiter struct {
	allow    bool
	recorded []string
}

func (f *fakeLimiter) Check(id string) bool { return f.allow }
func (f *fakeLimiter) Record(id string)     { f.recorded = append(f.recorded, id) }

type captureSink struct {
	events []audit.Event
}

func (c *captureSink) Record(e audit.Event) { c.events = append(c.events, e) }

func (c *captureSink) kinds() []audit.Kind {
	out := make([]audit.Kind, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	mediator  *Mediator
	params    *fakeParams
	registry  *fakeRegistry
	limiter   *fakeLimiter
	sink      *captureSink
	records   *store.Memory
	validator *fakeValidator
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newFixture builds a mediator with the gateway enabled, one valid key
// resolving to alice, an open rate limiter and res.partner exposed for
// read and create.
func newFixture() *fixture {
	f := &fixture{
		params: &fakeParams{values: map[string]string{}},
		registry: &fakeRegistry{
			enabled: true,
			exposed: map[string]bool{"res.partner": true},
			operations: map[string]bool{
				"res.partner-read":   true,
				"res.partner-create": true,
			},
		},
		validator: &fakeValidator{principals: map[string]*Principal{
			"mgw_valid": {ID: "alice", Name: "Alice", Active: true},
		}},
		limiter: &fakeLimiter{allow: true},
		sink:    &captureSink{},
		records: store.NewMemory(),
	}
	f.records.Seed("res.partner",
		store.Record{"id": int64(1), "name": "Azure Interior"},
		store.Record{"id": int64(2), "name": "Deco Addict"},
	)
	f.mediator = NewMediator(f.params, f.registry, f.validator, f.limiter, f.sink, f.records,
		Info{Version: "1.0.0", Database: "gateway", Language: "en_US", Timezone: "UTC"}, quietLogger())
	return f
}

func (f *fixture) request(method string) *Request {
	return &Request{
		Endpoint:   "/mcp/xmlrpc/object",
		HTTPMethod: "POST",
		RemoteAddr: "10.0.0.1:4312",
		APIKey:     "mgw_valid",
		Model:      "res.partner",
		Method:     method,
	}
}

func TestDisabledGatewayRejectsEverything(t *testing.T) {
	f := newFixture()
	f.registry.enabled = false

	v := f.mediator.Dispatch(context.Background(), f.request("search_read"))
	if v.Err == nil || v.Err.Kind != KindServiceUnavailable {
		t.Fatalf("verdict = %+v, want service unavailable", v.Err)
	}

	// Even a valid key and exposed model change nothing.
	if _, err := f.mediator.Authorize(context.Background(), f.request("search_read")); err == nil || err.Kind != KindServiceUnavailable {
		t.Fatalf("Authorize err = %+v, want service unavailable", err)
	}
	if f.records.TotalCalls() != 0 {
		t.Fatal("record store must not be touched while disabled")
	}
}

func TestInvalidKeyUnauthorized(t *testing.T) {
	f := newFixture()

	req := f.request("search_read")
	req.APIKey = "mgw_bogus"

	v := f.mediator.Dispatch(context.Background(), req)
	if v.Err == nil || v.Err.Kind != KindUnauthorized {
		t.Fatalf("verdict = %+v, want unauthorized", v.Err)
	}
	if f.records.TotalCalls() != 0 {
		t.Fatal("record store must not be touched on auth failure")
	}
}

func TestKeyEnforcementOffSubstitutesPublicPrincipal(t *testing.T) {
	f := newFixture()
	f.params.values[ParamUseAPIKeys] = "false"

	req := f.request("search_read")
	req.APIKey = ""

	v := f.mediator.Dispatch(context.Background(), req)
	if v.Err != nil {
		t.Fatalf("verdict err = %+v, want success", v.Err)
	}
	if v.Principal == nil || v.Principal.ID != PublicID {
		t.Fatalf("principal = %+v, want the public principal", v.Principal)
	}
}

func TestReadAllowedWriteForbidden(t *testing.T) {
	f := newFixture()

	v := f.mediator.Dispatch(context.Background(), f.request("search_read"))
	if !v.Completed() {
		t.Fatalf("read verdict = %+v, want completed", v.Err)
	}
	records, ok := v.Result.([]store.Record)
	if !ok || len(records) != 2 {
		t.Fatalf("result = %#v, want 2 records", v.Result)
	}

	req := f.request("write")
	req.Args = []interface{}{[]interface{}{int64(1)}, map[string]interface{}{"name": "Renamed"}}
	v = f.mediator.Dispatch(context.Background(), req)
	if v.Err == nil || v.Err.Kind != KindForbidden {
		t.Fatalf("write verdict = %+v, want forbidden", v.Err)
	}
	if f.records.CallCount("write") != 0 {
		t.Fatal("forbidden write must never reach the store")
	}
}

func TestRateLimitedRequest(t *testing.T) {
	f := newFixture()
	f.limiter.allow = false

	v := f.mediator.Dispatch(context.Background(), f.request("search_read"))
	if v.Err == nil || v.Err.Kind != KindRateLimited {
		t.Fatalf("verdict = %+v, want rate limited", v.Err)
	}

	found := false
	for _, e := range f.sink.events {
		if e.Kind == audit.KindRateLimit && e.UserID == "alice" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a rate_limit audit event, got %v", f.sink.kinds())
	}
	if len(f.limiter.recorded) != 0 {
		t.Fatal("a rejected request must not consume window capacity")
	}
}

func TestRateLimitToggleOff(t *testing.T) {
	f := newFixture()
	f.limiter.allow = false
	f.params.values[ParamEnableRateLimit] = "false"

	v := f.mediator.Dispatch(context.Background(), f.request("search_read"))
	if v.Err != nil {
		t.Fatalf("verdict err = %+v, want success with limiting off", v.Err)
	}
}

func TestUnderscoreMethodAlwaysForbidden(t *testing.T) {
	f := newFixture()

	v := f.mediator.Dispatch(context.Background(), f.request("_private_method"))
	if v.Err == nil || v.Err.Kind != KindForbidden {
		t.Fatalf("verdict = %+v, want forbidden", v.Err)
	}

	found := false
	for _, e := range f.sink.events {
		if e.Kind == audit.KindPermissionDenied {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a permission_denied audit event, got %v", f.sink.kinds())
	}
}

func TestUnmappedMethodForbidden(t *testing.T) {
	f := newFixture()

	v := f.mediator.Dispatch(context.Background(), f.request("run_cron_jobs"))
	if v.Err == nil || v.Err.Kind != KindForbidden {
		t.Fatalf("verdict = %+v, want forbidden", v.Err)
	}
}

func TestMalformedModelNameRejectedFirst(t *testing.T) {
	f := newFixture()
	f.registry.enabled = false // would otherwise yield service unavailable

	req := f.request("search_read")
	req.Model = "res.partner; DROP TABLE users"

	v := f.mediator.Dispatch(context.Background(), req)
	if v.Err == nil || v.Err.Kind != KindBadRequest {
		t.Fatalf("verdict = %+v, want bad request", v.Err)
	}
	if f.registry.lookups != 0 {
		t.Fatal("malformed name must be rejected before any registry lookup")
	}
	if f.records.TotalCalls() != 0 {
		t.Fatal("malformed name must be rejected before any store call")
	}
}

func TestUnknownModelNotFound(t *testing.T) {
	f := newFixture()
	f.registry.exposed["res.country"] = true
	f.registry.operations["res.country-read"] = true

	req := f.request("search_read")
	req.Model = "res.country"

	v := f.mediator.Dispatch(context.Background(), req)
	if v.Err == nil || v.Err.Kind != KindNotFound {
		t.Fatalf("verdict = %+v, want not found", v.Err)
	}
}

func TestKnownButUnexposedModelForbidden(t *testing.T) {
	f := newFixture()
	f.records.Seed("res.users", store.Record{"id": int64(1), "login": "admin"})

	req := f.request("search_read")
	req.Model = "res.users"

	v := f.mediator.Dispatch(context.Background(), req)
	if v.Err == nil || v.Err.Kind != KindForbidden {
		t.Fatalf("verdict = %+v, want forbidden", v.Err)
	}
}

func TestSuccessfulDispatchAudited(t *testing.T) {
	f := newFixture()

	req := f.request("create")
	req.Args = []interface{}{map[string]interface{}{"name": "New Partner"}}

	v := f.mediator.Dispatch(context.Background(), req)
	if !v.Completed() {
		t.Fatalf("verdict err = %+v", v.Err)
	}
	if id, ok := v.Result.(int64); !ok || id == 0 {
		t.Fatalf("create result = %#v, want a record id", v.Result)
	}

	var access, write bool
	for _, e := range f.sink.events {
		switch e.Kind {
		case audit.KindModelAccess:
			access = true
		case audit.KindWriteOperation:
			write = true
		}
	}
	if !access || !write {
		t.Fatalf("create must log model_access and write_operation, got %v", f.sink.kinds())
	}
}

func TestReadDispatchLogsNoWriteEvent(t *testing.T) {
	f := newFixture()

	v := f.mediator.Dispatch(context.Background(), f.request("search_count"))
	if !v.Completed() {
		t.Fatalf("verdict err = %+v", v.Err)
	}
	for _, e := range f.sink.events {
		if e.Kind == audit.KindWriteOperation {
			t.Fatalf("read dispatch logged a write_operation event: %v", f.sink.kinds())
		}
	}
}

func TestStoreFailureIsSanitized(t *testing.T) {
	f := newFixture()
	f.records.FailAll = context.DeadlineExceeded

	v := f.mediator.Dispatch(context.Background(), f.request("search_read"))
	if v.Err == nil || v.Err.Kind != KindInternal {
		t.Fatalf("verdict = %+v, want internal", v.Err)
	}
	if v.Err.Message != "Internal server error" {
		t.Fatalf("message %q leaks internals", v.Err.Message)
	}
}

func TestModelAccess(t *testing.T) {
	f := newFixture()
	principal := &Principal{ID: "alice", Active: true}

	req := f.request("")
	access, err := f.mediator.ModelAccess(context.Background(), principal, req)
	if err != nil {
		t.Fatalf("ModelAccess err = %+v", err)
	}
	if access["model"] != "res.partner" || access["enabled"] != true {
		t.Fatalf("access = %#v", access)
	}

	req.Model = "res.missing"
	if _, err := f.mediator.ModelAccess(context.Background(), principal, req); err == nil || err.Kind != KindNotFound {
		t.Fatalf("err = %+v, want not found", err)
	}

	f.records.Seed("res.users", store.Record{"id": int64(1)})
	req.Model = "res.users"
	if _, err := f.mediator.ModelAccess(context.Background(), principal, req); err == nil || err.Kind != KindForbidden {
		t.Fatalf("err = %+v, want forbidden", err)
	}
}

func TestSystemInfo(t *testing.T) {
	f := newFixture()

	info := f.mediator.SystemInfo()
	if info["db_name"] != "gateway" || info["gateway_version"] != "1.0.0" {
		t.Fatalf("info = %#v", info)
	}
	if info["enabled_models"] != 1 {
		t.Fatalf("enabled_models = %v, want 1", info["enabled_models"])
	}
}
