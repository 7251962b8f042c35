package flags

import "sync"

// killCache is the in-memory view of the kill switches.
type killCache struct {
	mu      sync.RWMutex
	modules map[string]bool
}

func newKillCache() *killCache {
	return &killCache{modules: make(map[string]bool)}
}

func (k *killCache) get(module string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.modules[module]
}

func (k *killCache) set(module string, disabled bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.modules[module] = disabled
}

func (k *killCache) replace(modules map[string]bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.modules = make(map[string]bool, len(modules))
	for m, v := range modules {
		k.modules[m] = v
	}
}
