// Package registry is the permission source of truth: which models the
// gateway exposes and which operations each allows. Durable state lives
// in the exposed_models table; evaluation goes through a casbin
// enforcer compiled from that table, fronted by the TTL decision cache.
package registry

import (
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/sirupsen/logrus"

	"model-gateway/internal/database"
	"model-gateway/internal/gateway"
	"model-gateway/internal/gateway/cache"
)

// Store is the database surface the registry needs.
type Store interface {
	modelSource
	GetExposedModel(modelName string) (*database.ExposedModel, error)
	CountExposedModels() (int, error)
}

// Registry answers the three permission questions, fail-closed on any
// doubt: unknown model, unknown operation, lookup error and disabled
// global switch all yield false.
type Registry struct {
	params gateway.ParamStore
	store  Store
	cache  *cache.Decisions
	log    *logrus.Entry

	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	loadedAt time.Time
	maxAge   time.Duration
}

// New builds a registry. The decision cache is owned by the caller so
// tests can construct isolated instances.
func New(params gateway.ParamStore, store Store, decisions *cache.Decisions, log *logrus.Logger) (*Registry, error) {
	e, err := newEnforcer(store)
	if err != nil {
		return nil, err
	}
	return &Registry{
		params:   params,
		store:    store,
		cache:    decisions,
		log:      log.WithField("component", "registry"),
		enforcer: e,
		loadedAt: time.Now(),
		maxAge:   cache.TTL,
	}, nil
}

// GatewayEnabled reports the global switch. Defaults to false so a
// fresh installation exposes nothing.
func (r *Registry) GatewayEnabled() bool {
	return r.cache.GlobalEnabled(func() bool {
		return gateway.BoolParam(r.params, gateway.ParamEnabled, "false")
	})
}

// ModelExposed reports whether a model is exposed: the gateway must be
// globally enabled and an active exposed_models row must exist. Invalid
// model names are rejected upstream; here they simply evaluate false.
func (r *Registry) ModelExposed(model string) bool {
	if !r.GatewayEnabled() {
		return false
	}
	name, err := gateway.SanitizeModelName(model)
	if err != nil {
		r.log.WithField("model", model).Warn("Invalid model name")
		return false
	}
	return r.cache.ModelEnabled(name, func() bool {
		return r.enforce(name, markerExposed)
	})
}

// OperationAllowed reports whether the operation is allowed for the
// model. An unrecognized operation returns false rather than erroring.
func (r *Registry) OperationAllowed(model string, op gateway.Operation) bool {
	if !r.ModelExposed(model) {
		return false
	}
	name, err := gateway.SanitizeModelName(model)
	if err != nil {
		return false
	}
	valid := false
	for _, known := range gateway.Operations {
		if op == known {
			valid = true
			break
		}
	}
	if !valid {
		r.log.WithFields(logrus.Fields{"model": name, "operation": op}).Warn("Invalid operation requested")
		return false
	}
	return r.cache.OperationAllowed(name, string(op), func() bool {
		return r.enforce(name, string(op))
	})
}

// ModelOperations returns the per-operation permission map for one
// model, or nil when the model is not exposed.
func (r *Registry) ModelOperations(model string) map[string]bool {
	if !r.ModelExposed(model) {
		return nil
	}
	em, err := r.store.GetExposedModel(model)
	if err != nil || em == nil || !em.Active {
		return nil
	}
	return map[string]bool{
		"read":   em.AllowRead,
		"create": em.AllowCreate,
		"write":  em.AllowWrite,
		"delete": em.AllowDelete,
	}
}

// EnabledModels lists exposed models with display names for the
// listing endpoint. Empty when the gateway is globally disabled.
func (r *Registry) EnabledModels() []gateway.ModelInfo {
	if !r.GatewayEnabled() {
		return []gateway.ModelInfo{}
	}
	models, err := r.store.ListExposedModels(true)
	if err != nil {
		r.log.WithError(err).Error("Failed to list exposed models")
		return []gateway.ModelInfo{}
	}
	infos := make([]gateway.ModelInfo, 0, len(models))
	for _, m := range models {
		name := m.DisplayName
		if name == "" {
			name = m.ModelName
		}
		infos = append(infos, gateway.ModelInfo{Model: m.ModelName, Name: name})
	}
	return infos
}

// EnabledModelCount counts exposed models; zero when globally disabled.
func (r *Registry) EnabledModelCount() int {
	if !r.GatewayEnabled() {
		return 0
	}
	n, err := r.store.CountExposedModels()
	if err != nil {
		return 0
	}
	return n
}

// Invalidate clears the decision cache and reloads policy from the
// table. Called after any configuration change; the two steps together
// form the barrier readers rely on.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	if err := r.enforcer.LoadPolicy(); err != nil {
		r.log.WithError(err).Error("Failed to reload policy")
	}
	r.loadedAt = time.Now()
	r.mu.Unlock()

	r.cache.InvalidateAll()
	r.log.Info("Permission caches cleared")
}

// enforce runs one casbin check, reloading policy first when the
// loaded copy has outlived the cache TTL. enforce only runs on a
// decision-cache miss, so reloads stay infrequent.
func (r *Registry) enforce(obj, act string) bool {
	r.refreshIfStale()

	r.mu.RLock()
	defer r.mu.RUnlock()
	ok, err := r.enforcer.Enforce(obj, act)
	if err != nil {
		r.log.WithError(err).Error("Policy evaluation failed")
		return false
	}
	return ok
}

func (r *Registry) refreshIfStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.loadedAt) < r.maxAge {
		return
	}
	if err := r.enforcer.LoadPolicy(); err != nil {
		r.log.WithError(err).Error("Failed to reload policy")
		return
	}
	r.loadedAt = time.Now()
}
