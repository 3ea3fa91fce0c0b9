package registry

import (
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"model-gateway/internal/database"
)

// casbinModel matches a (model, operation) request against loaded
// policy lines. No roles, no wildcards: permissions are explicit rows.
const casbinModel = `
[request_definition]
r = obj, act

[policy_definition]
p = obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.obj == p.obj && r.act == p.act
`

// markerExposed is the pseudo-operation recorded for every active
// exposed model, so model enablement and operation permission share
// one policy store.
const markerExposed = "exposed"

// modelSource is the slice of the database the adapter reads.
type modelSource interface {
	ListExposedModels(activeOnly bool) ([]database.ExposedModel, error)
}

// exposedModelAdapter loads casbin policy from the exposed_models
// table. It is read-only: policy is edited through the table, never
// through the enforcer.
type exposedModelAdapter struct {
	source modelSource
}

var _ persist.Adapter = (*exposedModelAdapter)(nil)

// LoadPolicy compiles active exposed-model rows into policy lines:
// one "exposed" marker per model plus one line per allowed operation.
func (a *exposedModelAdapter) LoadPolicy(m casbinmodel.Model) error {
	models, err := a.source.ListExposedModels(true)
	if err != nil {
		return fmt.Errorf("failed to load exposed models: %v", err)
	}

	for _, em := range models {
		persist.LoadPolicyLine(fmt.Sprintf("p, %s, %s", em.ModelName, markerExposed), m)
		for op, allowed := range map[string]bool{
			"read":   em.AllowRead,
			"create": em.AllowCreate,
			"write":  em.AllowWrite,
			"delete": em.AllowDelete,
		} {
			if allowed {
				persist.LoadPolicyLine(fmt.Sprintf("p, %s, %s", em.ModelName, op), m)
			}
		}
	}
	return nil
}

func (a *exposedModelAdapter) SavePolicy(casbinmodel.Model) error {
	return errors.New("exposed model adapter is read-only")
}

func (a *exposedModelAdapter) AddPolicy(string, string, []string) error {
	return errors.New("exposed model adapter is read-only")
}

func (a *exposedModelAdapter) RemovePolicy(string, string, []string) error {
	return errors.New("exposed model adapter is read-only")
}

func (a *exposedModelAdapter) RemoveFilteredPolicy(string, string, int, ...string) error {
	return errors.New("exposed model adapter is read-only")
}

// newEnforcer builds a casbin enforcer over the exposed_models table.
func newEnforcer(source modelSource) (*casbin.Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %v", err)
	}
	e, err := casbin.NewEnforcer(m, &exposedModelAdapter{source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %v", err)
	}
	return e, nil
}
