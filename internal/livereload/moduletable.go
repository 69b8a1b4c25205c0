package livereload

import (
	"context"
	"sync"
)

// ModuleTable records the asset version currently applied per module id.
// It is the in-process stand-in for a runtime's module registry.
type ModuleTable struct {
	mu      sync.RWMutex
	modules map[string]Asset
	applied int
}

// NewModuleTable creates an empty table.
func NewModuleTable() *ModuleTable {
	return &ModuleTable{modules: make(map[string]Asset)}
}

// Apply replaces every asset in order. It matches HMRHandlers.OnUpdate.
func (t *ModuleTable) Apply(ctx context.Context, assets []Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range assets {
		t.modules[a.ID] = a
	}
	t.applied++
	return nil
}

// Current returns the applied asset for id.
func (t *ModuleTable) Current(id string) (Asset, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.modules[id]
	return a, ok
}

// Len returns the number of modules applied so far.
func (t *ModuleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.modules)
}

// Updates returns how many updates were applied.
func (t *ModuleTable) Updates() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.applied
}
