package registry

import (
	"testing"

	"github.com/sirupsen/logrus"

	"model-gateway/internal/database"
	"model-gateway/internal/gateway"
	"model-gateway/internal/gateway/cache"
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

type fakeStore struct {
	models map[string]database.ExposedModel
}

func (f *fakeStore) ListExposedModels(activeOnly bool) ([]database.ExposedModel, error) {
	out := make([]database.ExposedModel, 0, len(f.models))
	for _, m := range f.models {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) GetExposedModel(name string) (*database.ExposedModel, error) {
	if m, ok := f.models[name]; ok {
		return &m, nil
	}
	return nil, nil
}

func (f *fakeStore) CountExposedModels() (int, error) {
	n := 0
	for _, m := range f.models {
		if m.Active {
			n++
		}
	}
	return n, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestRegistry(t *testing.T, enabled bool, models ...database.ExposedModel) (*Registry, *fakeParams, *fakeStore) {
	t.Helper()

	params := &fakeParams{values: map[string]string{}}
	if enabled {
		params.values[gateway.ParamEnabled] = "true"
	}
	store := &fakeStore{models: map[string]database.ExposedModel{}}
	for _, m := range models {
		store.models[m.ModelName] = m
	}

	r, err := New(params, store, cache.New(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, params, store
}

func partnerModel() database.ExposedModel {
	return database.ExposedModel{
		ModelName:   "res.partner",
		DisplayName: "Contact",
		Active:      true,
		AllowRead:   true,
		AllowCreate: true,
	}
}

func TestGatewayDisabledByDefault(t *testing.T) {
	r, _, _ := newTestRegistry(t, false, partnerModel())

	if r.GatewayEnabled() {
		t.Fatal("gateway must default to disabled")
	}
	if r.ModelExposed("res.partner") {
		t.Fatal("no model is exposed while the gateway is disabled")
	}
	if r.OperationAllowed("res.partner", gateway.OpRead) {
		t.Fatal("no operation is allowed while the gateway is disabled")
	}
	if n := r.EnabledModelCount(); n != 0 {
		t.Fatalf("EnabledModelCount = %d, want 0", n)
	}
}

func TestModelExposure(t *testing.T) {
	r, _, _ := newTestRegistry(t, true, partnerModel())

	if !r.ModelExposed("res.partner") {
		t.Fatal("res.partner should be exposed")
	}
	if r.ModelExposed("res.users") {
		t.Fatal("unknown model must not be exposed")
	}
	if r.ModelExposed("bad name!") {
		t.Fatal("invalid model name must evaluate false")
	}
}

func TestInactiveModelBehavesAsAbsent(t *testing.T) {
	m := partnerModel()
	m.Active = false
	r, _, _ := newTestRegistry(t, true, m)

	if r.ModelExposed("res.partner") {
		t.Fatal("inactive exposure row must behave as not exposed")
	}
}

func TestOperationFlags(t *testing.T) {
	r, _, _ := newTestRegistry(t, true, partnerModel())

	cases := []struct {
		op   gateway.Operation
		want bool
	}{
		{gateway.OpRead, true},
		{gateway.OpCreate, true},
		{gateway.OpWrite, false},
		{gateway.OpDelete, false},
	}
	for _, tc := range cases {
		if got := r.OperationAllowed("res.partner", tc.op); got != tc.want {
			t.Errorf("OperationAllowed(res.partner, %s) = %v, want %v", tc.op, got, tc.want)
		}
	}
}

func TestUnknownOperationFailsClosed(t *testing.T) {
	r, _, _ := newTestRegistry(t, true, partnerModel())

	if r.OperationAllowed("res.partner", gateway.Operation("drop_table")) {
		t.Fatal("unrecognized operation must evaluate false, not error")
	}
}

func TestModelOperations(t *testing.T) {
	r, _, _ := newTestRegistry(t, true, partnerModel())

	ops := r.ModelOperations("res.partner")
	want := map[string]bool{"read": true, "create": true, "write": false, "delete": false}
	for op, allowed := range want {
		if ops[op] != allowed {
			t.Errorf("ModelOperations[%s] = %v, want %v", op, ops[op], allowed)
		}
	}

	if ops := r.ModelOperations("res.users"); ops != nil {
		t.Fatalf("ModelOperations for unexposed model = %v, want nil", ops)
	}
}

func TestInvalidatePicksUpTableChanges(t *testing.T) {
	r, _, store := newTestRegistry(t, true, partnerModel())

	if !r.ModelExposed("res.partner") {
		t.Fatal("precondition: exposed")
	}

	m := store.models["res.partner"]
	m.Active = false
	store.models["res.partner"] = m

	// Still cached and still loaded in the enforcer.
	if !r.ModelExposed("res.partner") {
		t.Fatal("change must not be visible before invalidation")
	}

	r.Invalidate()

	if r.ModelExposed("res.partner") {
		t.Fatal("invalidation must surface the deactivated row")
	}
}

func TestInvalidatePicksUpParamChanges(t *testing.T) {
	r, params, _ := newTestRegistry(t, true, partnerModel())

	if !r.GatewayEnabled() {
		t.Fatal("precondition: enabled")
	}

	if err := params.SetParam(gateway.ParamEnabled, "false"); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()

	if r.GatewayEnabled() {
		t.Fatal("invalidation must surface the flipped global switch")
	}
}

func TestEnabledModels(t *testing.T) {
	unnamed := database.ExposedModel{ModelName: "res.users", Active: true, AllowRead: true}
	r, _, _ := newTestRegistry(t, true, partnerModel(), unnamed)

	infos := r.EnabledModels()
	if len(infos) != 2 {
		t.Fatalf("EnabledModels returned %d entries, want 2", len(infos))
	}
	byModel := map[string]string{}
	for _, info := range infos {
		byModel[info.Model] = info.Name
	}
	if byModel["res.partner"] != "Contact" {
		t.Errorf("display name = %q, want Contact", byModel["res.partner"])
	}
	if byModel["res.users"] != "res.users" {
		t.Errorf("fallback name = %q, want res.users", byModel["res.users"])
	}
}
