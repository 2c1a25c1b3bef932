package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"votewallet/internal/logging"
	"votewallet/internal/retry"
	"votewallet/internal/types"
)

// Registry holds the enabled adapters and fans queries out across them.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	retryCfg retry.Config
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		// Tighter than the package default: a flaky source gets one
		// second try per query, not a long stall that holds a worker.
		retryCfg: retry.Config{
			MaxAttempts:    2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
	}
}

// Register adds an adapter; a later registration under the same name
// replaces the earlier one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchAll queries every registered adapter concurrently and returns the
// candidates per source. One adapter failing does not cancel its siblings;
// per-source errors come back in the error map so the caller can report
// partial results.
func (r *Registry) SearchAll(ctx context.Context, query, region string) (map[string][]types.Candidate, map[string]error) {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	results := make(map[string][]types.Candidate)
	errs := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, adapter := range adapters {
		adapter := adapter
		g.Go(func() error {
			candidates, err := retry.Do(gctx, r.retryCfg, adapter.Name(),
				func(ctx context.Context) ([]types.Candidate, error) {
					return adapter.Search(ctx, query, region)
				})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Collected, not returned: an adapter outage must not
				// cancel sibling searches through the group context.
				errs[adapter.Name()] = fmt.Errorf("search %s: %w", adapter.Name(), err)
				logging.SourcesWarn("adapter %s failed: %v", adapter.Name(), err)
				return nil
			}
			if len(candidates) > 0 {
				results[adapter.Name()] = candidates
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		errs = nil
	}
	return results, errs
}
