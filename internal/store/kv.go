// file: internal/store/kv.go

package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
)

// Timeout constants for KV operations
const (
	// defaultLookupTimeout is the maximum time to wait for a single KV lookup
	defaultLookupTimeout = 5 * time.Second
)

// errNotFound marks a document that does not exist or may not be read
var errNotFound = errors.New("document not found")

// kvGetter is the part of a KV bucket the repository reads through
type kvGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// jetstreamBucket adapts jetstream.KeyValue to kvGetter
type jetstreamBucket struct {
	kv jetstream.KeyValue
}

func (b jetstreamBucket) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, errNotFound
		}
		return nil, err
	}
	return entry.Value(), nil
}

// Document keys. Host names and item keys are base64url encoded because KV
// keys only allow [-/_=.a-zA-Z0-9].
func hostDocKey(id string) string     { return "host." + id }
func itemDocKey(id string) string     { return "item." + id }
func functionDocKey(id string) string { return "function." + id }
func valueMapDocKey(id string) string { return "valuemap." + id }

const globalMacrosDocKey = "global.macros"

func hostNameDocKey(name string) string {
	return "hostname." + base64.RawURLEncoding.EncodeToString([]byte(name))
}

func itemKeyDocKey(k entity.HostKey) string {
	return "itemkey." + k.HostID + "." + base64.RawURLEncoding.EncodeToString([]byte(k.Key))
}

// KVRepository reads entity documents from a NATS JetStream KV bucket.
// Index documents (hostname.*, itemkey.*) hold the raw id they point to.
type KVRepository struct {
	bucket        string
	kv            kvGetter
	cache         *LocalKVCache
	logger        *logger.Logger
	lookupTimeout time.Duration
	maxParallel   int
}

// NewKVRepository creates a repository over a JetStream KV bucket. cache may be nil.
func NewKVRepository(kv jetstream.KeyValue, cache *LocalKVCache, log *logger.Logger, lookupTimeout time.Duration, maxParallel int) *KVRepository {
	return newKVRepository(kv.Bucket(), jetstreamBucket{kv: kv}, cache, log, lookupTimeout, maxParallel)
}

func newKVRepository(bucket string, kv kvGetter, cache *LocalKVCache, log *logger.Logger, lookupTimeout time.Duration, maxParallel int) *KVRepository {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	if maxParallel <= 0 {
		maxParallel = 16
	}
	return &KVRepository{
		bucket:        bucket,
		kv:            kv,
		cache:         cache,
		logger:        log,
		lookupTimeout: lookupTimeout,
		maxParallel:   maxParallel,
	}
}

// get retrieves a document (cache first, then NATS KV)
func (r *KVRepository) get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok := r.cache.Get(r.bucket, key); ok {
		return value, true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	value, err := r.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, errNotFound) {
			r.logger.Debug("KV key does not exist in bucket", "bucket", r.bucket, "key", key)
			return nil, false, nil
		}
		r.logger.Error("NATS KV lookup failed - infrastructure issue",
			"bucket", r.bucket,
			"key", key,
			"error", err,
			"errorType", fmt.Sprintf("%T", err))
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}

	r.cache.Set(r.bucket, key, value)
	return value, true, nil
}

// getDoc decodes a JSON document into a new T
func getDoc[T any](ctx context.Context, r *KVRepository, key string) (*T, bool, error) {
	raw, ok, err := r.get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &v, true, nil
}

// fetchAll looks up every id in parallel and collects the documents that exist
func fetchAll[K comparable, V any](ctx context.Context, r *KVRepository, ids []K, lookup func(context.Context, K) (V, bool, error)) (map[K]V, error) {
	var mu sync.Mutex
	out := make(map[K]V, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)
	for _, id := range ids {
		g.Go(func() error {
			v, ok, err := lookup(gctx, id)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *KVRepository) FetchHosts(ctx context.Context, ids []string) (map[string]*entity.Host, error) {
	return fetchAll(ctx, r, ids, func(ctx context.Context, id string) (*entity.Host, bool, error) {
		return getDoc[entity.Host](ctx, r, hostDocKey(id))
	})
}

func (r *KVRepository) FetchHostsByName(ctx context.Context, names []string) (map[string]*entity.Host, error) {
	return fetchAll(ctx, r, names, func(ctx context.Context, name string) (*entity.Host, bool, error) {
		id, ok, err := r.get(ctx, hostNameDocKey(name))
		if err != nil || !ok {
			return nil, false, err
		}
		return getDoc[entity.Host](ctx, r, hostDocKey(string(id)))
	})
}

func (r *KVRepository) FetchItems(ctx context.Context, ids []string) (map[string]*entity.Item, error) {
	return fetchAll(ctx, r, ids, func(ctx context.Context, id string) (*entity.Item, bool, error) {
		return getDoc[entity.Item](ctx, r, itemDocKey(id))
	})
}

func (r *KVRepository) FetchItemsByKey(ctx context.Context, keys []entity.HostKey) (map[entity.HostKey]*entity.Item, error) {
	return fetchAll(ctx, r, keys, func(ctx context.Context, k entity.HostKey) (*entity.Item, bool, error) {
		id, ok, err := r.get(ctx, itemKeyDocKey(k))
		if err != nil || !ok {
			return nil, false, err
		}
		return getDoc[entity.Item](ctx, r, itemDocKey(string(id)))
	})
}

func (r *KVRepository) FetchFunctions(ctx context.Context, ids []string) (map[string]*entity.Function, error) {
	return fetchAll(ctx, r, ids, func(ctx context.Context, id string) (*entity.Function, bool, error) {
		return getDoc[entity.Function](ctx, r, functionDocKey(id))
	})
}

func (r *KVRepository) FetchHostMacros(ctx context.Context, hostIDs []string) (map[string][]entity.UserMacro, error) {
	return fetchAll(ctx, r, hostIDs, func(ctx context.Context, id string) ([]entity.UserMacro, bool, error) {
		h, ok, err := getDoc[entity.Host](ctx, r, hostDocKey(id))
		if err != nil || !ok {
			return nil, false, err
		}
		return h.Macros, true, nil
	})
}

func (r *KVRepository) FetchTemplateLinks(ctx context.Context, hostIDs []string) (map[string][]string, error) {
	return fetchAll(ctx, r, hostIDs, func(ctx context.Context, id string) ([]string, bool, error) {
		h, ok, err := getDoc[entity.Host](ctx, r, hostDocKey(id))
		if err != nil || !ok {
			return nil, false, err
		}
		return h.TemplateIDs, true, nil
	})
}

func (r *KVRepository) FetchGlobalMacros(ctx context.Context) ([]entity.UserMacro, error) {
	macros, ok, err := getDoc[[]entity.UserMacro](ctx, r, globalMacrosDocKey)
	if err != nil || !ok {
		return nil, err
	}
	return *macros, nil
}

func (r *KVRepository) FetchValueMaps(ctx context.Context, ids []string) (map[string]*entity.ValueMap, error) {
	return fetchAll(ctx, r, ids, func(ctx context.Context, id string) (*entity.ValueMap, bool, error) {
		return getDoc[entity.ValueMap](ctx, r, valueMapDocKey(id))
	})
}
