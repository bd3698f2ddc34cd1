// file: internal/macro/memo.go

package macro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/metrics"
)

// memoEntry holds one fetched key. done is closed once val/found/err are set.
type memoEntry[V any] struct {
	done  chan struct{}
	val   V
	found bool
	err   error
}

// memoTable fetches every key at most once per call and lets concurrent
// callers wait on a fetch already in flight
type memoTable[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*memoEntry[V]
}

func (t *memoTable[K, V]) load(ctx context.Context, keys []K, fetch func(context.Context, []K) (map[K]V, error)) (map[K]V, error) {
	var (
		mine     []K
		owned    []*memoEntry[V]
		waitKeys []K
		waiting  []*memoEntry[V]
	)

	t.mu.Lock()
	if t.entries == nil {
		t.entries = make(map[K]*memoEntry[V])
	}
	for _, k := range keys {
		if e, ok := t.entries[k]; ok {
			waitKeys = append(waitKeys, k)
			waiting = append(waiting, e)
			continue
		}
		e := &memoEntry[V]{done: make(chan struct{})}
		t.entries[k] = e
		mine = append(mine, k)
		owned = append(owned, e)
	}
	t.mu.Unlock()

	result := make(map[K]V, len(keys))

	if len(mine) > 0 {
		vals, err := fetch(ctx, mine)
		for i, k := range mine {
			e := owned[i]
			if err != nil {
				e.err = err
			} else {
				e.val, e.found = vals[k]
			}
			close(e.done)
		}
		if err != nil {
			return nil, err
		}
		for i, k := range mine {
			if owned[i].found {
				result[k] = owned[i].val
			}
		}
	}

	for i, e := range waiting {
		select {
		case <-e.done:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrCollaborator, ctx.Err())
		}
		if e.err != nil {
			return nil, e.err
		}
		if e.found {
			result[waitKeys[i]] = e.val
		}
	}
	return result, nil
}

// peek splits keys into values already fetched and keys never fetched or
// still in flight. Keys fetched and not found are in neither.
func (t *memoTable[K, V]) peek(keys []K) (map[K]V, []K) {
	have := make(map[K]V)
	var rest []K

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		e, ok := t.entries[k]
		if !ok {
			rest = append(rest, k)
			continue
		}
		select {
		case <-e.done:
			if e.err != nil {
				rest = append(rest, k)
			} else if e.found {
				have[k] = e.val
			}
		default:
			rest = append(rest, k)
		}
	}
	return have, rest
}

// memoRepository is the request-scoped view of the Repository used by one
// resolution call. Each id is fetched at most once and failures are wrapped
// with ErrCollaborator.
type memoRepository struct {
	repo    Repository
	metrics *metrics.Metrics

	hosts       memoTable[string, *entity.Host]
	hostsByName memoTable[string, *entity.Host]
	items       memoTable[string, *entity.Item]
	itemsByKey  memoTable[entity.HostKey, *entity.Item]
	functions   memoTable[string, *entity.Function]
	hostMacros  memoTable[string, []entity.UserMacro]
	links       memoTable[string, []string]
	valueMaps   memoTable[string, *entity.ValueMap]

	global singleflight.Group
	mu     sync.Mutex
	loaded bool
	macros []entity.UserMacro
}

func newMemoRepository(repo Repository, m *metrics.Metrics) *memoRepository {
	return &memoRepository{repo: repo, metrics: m}
}

// observe wraps one repository call with metrics and error wrapping
func observe[T any](r *memoRepository, op string, call func() (T, error)) (T, error) {
	start := time.Now()
	v, err := call()
	r.metrics.ObserveCollaboratorDuration("repository", time.Since(start).Seconds())
	if err != nil {
		r.metrics.IncCollaboratorRequests("repository", "error")
		var zero T
		return zero, fmt.Errorf("%w: repository %s: %w", ErrCollaborator, op, err)
	}
	r.metrics.IncCollaboratorRequests("repository", "success")
	return v, nil
}

func (r *memoRepository) FetchHosts(ctx context.Context, ids []string) (map[string]*entity.Host, error) {
	return r.hosts.load(ctx, uniqueStrings(ids), func(ctx context.Context, ids []string) (map[string]*entity.Host, error) {
		return observe(r, "fetch hosts", func() (map[string]*entity.Host, error) { return r.repo.FetchHosts(ctx, ids) })
	})
}

func (r *memoRepository) FetchHostsByName(ctx context.Context, names []string) (map[string]*entity.Host, error) {
	return r.hostsByName.load(ctx, uniqueStrings(names), func(ctx context.Context, names []string) (map[string]*entity.Host, error) {
		return observe(r, "fetch hosts by name", func() (map[string]*entity.Host, error) { return r.repo.FetchHostsByName(ctx, names) })
	})
}

func (r *memoRepository) FetchItems(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
	return r.items.load(ctx, uniqueStrings(ids), func(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
		return observe(r, "fetch items", func() (map[string]*entity.Item, error) { return r.repo.FetchItems(ctx, ids) })
	})
}

func (r *memoRepository) FetchItemsByKey(ctx context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error) {
	return r.itemsByKey.load(ctx, uniqueKeys(keys), func(ctx context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error) {
		return observe(r, "fetch items by key", func() (map[entity.HostKey]*entity.Item, error) { return r.repo.FetchItemsByKey(ctx, keys) })
	})
}

func (r *memoRepository) FetchFunctions(ctx context.Context, ids []string) (map[string]*entity.Function, error) {
	return r.functions.load(ctx, uniqueStrings(ids), func(ctx context.Context, ids []string) (map[string]*entity.Function, error) {
		return observe(r, "fetch functions", func() (map[string]*entity.Function, error) { return r.repo.FetchFunctions(ctx, ids) })
	})
}

// FetchHostMacros takes the macros of hosts this call already fetched from
// their documents and asks the repository only for the rest
func (r *memoRepository) FetchHostMacros(ctx context.Context, hostIDs []string) (map[string][]entity.UserMacro, error) {
	hosts, rest := r.hosts.peek(uniqueStrings(hostIDs))
	out, err := r.hostMacros.load(ctx, rest, func(ctx context.Context, ids []string) (map[string][]entity.UserMacro, error) {
		return observe(r, "fetch host macros", func() (map[string][]entity.UserMacro, error) { return r.repo.FetchHostMacros(ctx, ids) })
	})
	if err != nil {
		return nil, err
	}
	for id, h := range hosts {
		if h != nil {
			out[id] = h.Macros
		}
	}
	return out, nil
}

// FetchTemplateLinks reuses fetched host documents the same way as FetchHostMacros
func (r *memoRepository) FetchTemplateLinks(ctx context.Context, hostIDs []string) (map[string][]string, error) {
	hosts, rest := r.hosts.peek(uniqueStrings(hostIDs))
	out, err := r.links.load(ctx, rest, func(ctx context.Context, ids []string) (map[string][]string, error) {
		return observe(r, "fetch template links", func() (map[string][]string, error) { return r.repo.FetchTemplateLinks(ctx, ids) })
	})
	if err != nil {
		return nil, err
	}
	for id, h := range hosts {
		if h != nil {
			out[id] = h.TemplateIDs
		}
	}
	return out, nil
}

func (r *memoRepository) FetchValueMaps(ctx context.Context, ids []string) (map[string]*entity.ValueMap, error) {
	return r.valueMaps.load(ctx, uniqueStrings(ids), func(ctx context.Context, ids []string) (map[string]*entity.ValueMap, error) {
		return observe(r, "fetch value maps", func() (map[string]*entity.ValueMap, error) { return r.repo.FetchValueMaps(ctx, ids) })
	})
}

// FetchGlobalMacros loads the global macros once; concurrent callers share the fetch
func (r *memoRepository) FetchGlobalMacros(ctx context.Context) ([]entity.UserMacro, error) {
	r.mu.Lock()
	if r.loaded {
		macros := r.macros
		r.mu.Unlock()
		return macros, nil
	}
	r.mu.Unlock()

	v, err, _ := r.global.Do("global", func() (interface{}, error) {
		macros, err := observe(r, "fetch global macros", func() ([]entity.UserMacro, error) { return r.repo.FetchGlobalMacros(ctx) })
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.macros, r.loaded = macros, true
		r.mu.Unlock()
		return macros, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.UserMacro), nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func uniqueKeys(in []entity.HostKey) []entity.HostKey {
	seen := make(map[entity.HostKey]struct{}, len(in))
	out := make([]entity.HostKey, 0, len(in))
	for _, k := range in {
		if k.HostID == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
