// Package cache provides the time-boxed decision memo sitting between
// the access mediator and the permission registry. Three independent
// maps are kept: the single global-enabled slot, per-model enablement
// and per-model-operation permission. All three share one TTL and are
// always invalidated together.
package cache

import (
	"sync"
	"time"
)

// TTL is how long a cached decision stays valid.
const TTL = 300 * time.Second

type entry struct {
	value     bool
	timestamp time.Time
}

func (e entry) live(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.timestamp) < ttl
}

// Decisions memoizes registry answers. The zero value is not usable;
// construct with New.
type Decisions struct {
	mu sync.Mutex

	ttl time.Duration
	now func() time.Time

	global     *entry
	models     map[string]entry
	operations map[string]entry
}

// New returns an empty decision cache with the standard TTL.
func New() *Decisions {
	return NewWithTTL(TTL)
}

// NewWithTTL returns an empty decision cache with a custom TTL; tests
// use short TTLs to exercise expiry.
func NewWithTTL(ttl time.Duration) *Decisions {
	return &Decisions{
		ttl:        ttl,
		now:        time.Now,
		models:     make(map[string]entry),
		operations: make(map[string]entry),
	}
}

// GlobalEnabled returns the cached global switch, computing it on miss
// or expiry.
func (c *Decisions) GlobalEnabled(compute func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.global != nil && c.global.live(now, c.ttl) {
		return c.global.value
	}
	value := compute()
	c.global = &entry{value: value, timestamp: now}
	return value
}

// ModelEnabled returns the cached per-model decision, computing it on
// miss or expiry.
func (c *Decisions) ModelEnabled(model string, compute func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getOrCompute(c.models, model, compute)
}

// OperationAllowed returns the cached per-model-operation decision,
// keyed by the "model-operation" composite.
func (c *Decisions) OperationAllowed(model, operation string, compute func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getOrCompute(c.operations, model+"-"+operation, compute)
}

// getOrCompute must be called with the lock held. The compute callback
// runs under the lock so concurrent readers of the same key see one
// registry hit, never a torn mix of old and new values.
func (c *Decisions) getOrCompute(m map[string]entry, key string, compute func() bool) bool {
	now := c.now()
	if e, ok := m[key]; ok && e.live(now, c.ttl) {
		return e.value
	}
	value := compute()
	m[key] = entry{value: value, timestamp: now}
	return value
}

// InvalidateAll drops all three maps atomically. Readers observe either
// the previous fully-populated cache or the new empty one.
func (c *Decisions) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = nil
	c.models = make(map[string]entry)
	c.operations = make(map[string]entry)
}

// Len reports how many entries are held across all maps (global slot
// counts as one when set); used by tests.
func (c *Decisions) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.models) + len(c.operations)
	if c.global != nil {
		n++
	}
	return n
}
