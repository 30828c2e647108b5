// Package plugins holds the plan store backends the service can be built
// with. Backends register themselves by name from init.
package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/core/store"
)

// StoreFactory opens a plan store from its configuration section.
type StoreFactory func(ctx context.Context, cfg config.StoreConfig) (store.PlanStore, error)

var (
	mu     sync.RWMutex
	stores = map[string]StoreFactory{}
)

// RegisterStore makes a backend available under name. Registering the same
// name twice replaces the previous factory.
func RegisterStore(name string, f StoreFactory) {
	mu.Lock()
	defer mu.Unlock()
	stores[name] = f
}

// StoreBackends lists the registered backend names in order.
func StoreBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(stores))
	for name := range stores {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OpenStore opens the backend selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.PlanStore, error) {
	mu.RLock()
	f, ok := stores[cfg.Backend]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	st, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return st, nil
}
