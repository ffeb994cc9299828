package dedupe

import (
	"context"
	"sync"
)

// Filter marks crawl URLs as visited so a URL reachable from two menu
// branches is fetched once per session.
type Filter interface {
	// Seen marks key as visited and reports whether it was already seen.
	Seen(ctx context.Context, key string) (bool, error)
}

// MemoryFilter implements Filter with a process-local set.
type MemoryFilter struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryFilter creates a new in-memory filter
func NewMemoryFilter() *MemoryFilter {
	return &MemoryFilter{keys: make(map[string]struct{})}
}

// Seen marks key as visited and reports whether it was already seen.
func (f *MemoryFilter) Seen(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.keys[key]; ok {
		return true, nil
	}
	f.keys[key] = struct{}{}
	return false, nil
}
