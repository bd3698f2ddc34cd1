package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/logger"
)

// mockBucket implements kvGetter and kvPutter over a map
type mockBucket struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  map[string]int
	fail  bool
}

func newMockBucket() *mockBucket {
	return &mockBucket{store: make(map[string][]byte), gets: make(map[string]int)}
}

func (m *mockBucket) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets[key]++
	if m.fail {
		return nil, errors.New("simulated NATS error")
	}
	v, ok := m.store[key]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (m *mockBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return uint64(len(m.store)), nil
}

func (m *mockBucket) getCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[key]
}

func seededRepository(t *testing.T, cache *LocalKVCache) (*KVRepository, *mockBucket) {
	t.Helper()
	bucket := newMockBucket()
	n, err := Seed(context.Background(), bucket, loadTestFixture(t))
	require.NoError(t, err)
	// 2 hosts + 2 name indexes + 2 items + 2 key indexes + 1 function + 1 value map + globals
	assert.Equal(t, 11, n)
	return newKVRepository("monitoring", bucket, cache, logger.NewNopLogger(), time.Second, 4), bucket
}

func TestKVRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo, _ := seededRepository(t, nil)

	hosts, err := repo.FetchHosts(ctx, []string{"10084", "404"})
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "web-01", hosts["10084"].Host)
	assert.Equal(t, "10.0.0.5", hosts["10084"].Interfaces[0].IP)

	byName, err := repo.FetchHostsByName(ctx, []string{"Template OS Linux", "ghost"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.True(t, byName["Template OS Linux"].Template)

	key := entity.HostKey{HostID: "10084", Key: "system.cpu.load[all,avg1]"}
	items, err := repo.FetchItemsByKey(ctx, []entity.HostKey{key})
	require.NoError(t, err)
	assert.Equal(t, "0.42", items[key].LastValue)

	links, err := repo.FetchTemplateLinks(ctx, []string{"10084"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10001"}, links["10084"])

	macros, err := repo.FetchHostMacros(ctx, []string{"10084", "10001"})
	require.NoError(t, err)
	assert.Equal(t, "90", macros["10084"][0].Value)
	assert.Len(t, macros["10001"], 2)

	global, err := repo.FetchGlobalMacros(ctx)
	require.NoError(t, err)
	require.Len(t, global, 1)

	vms, err := repo.FetchValueMaps(ctx, []string{"5"})
	require.NoError(t, err)
	assert.Equal(t, "Service state", vms["5"].Name)
}

func TestKVRepository_MissingGlobalMacros(t *testing.T) {
	repo := newKVRepository("monitoring", newMockBucket(), nil, logger.NewNopLogger(), 0, 0)

	global, err := repo.FetchGlobalMacros(context.Background())
	require.NoError(t, err)
	assert.Nil(t, global)
}

func TestKVRepository_InfrastructureError(t *testing.T) {
	repo, bucket := seededRepository(t, nil)
	bucket.fail = true

	_, err := repo.FetchHosts(context.Background(), []string{"10084"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host.10084")
}

func TestKVRepository_CorruptDocument(t *testing.T) {
	bucket := newMockBucket()
	bucket.store[hostDocKey("1")] = []byte("{not json")
	repo := newKVRepository("monitoring", bucket, nil, logger.NewNopLogger(), time.Second, 2)

	_, err := repo.FetchHosts(context.Background(), []string{"1"})
	assert.Error(t, err)
}

func TestKVRepository_UsesLocalCache(t *testing.T) {
	ctx := context.Background()
	cache := NewLocalKVCache(logger.NewNopLogger(), nil, true)
	repo, bucket := seededRepository(t, cache)

	for i := 0; i < 3; i++ {
		_, err := repo.FetchItems(ctx, []string{"23296"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, bucket.getCount(itemDocKey("23296")))

	cache.Flush()
	_, err := repo.FetchItems(ctx, []string{"23296"})
	require.NoError(t, err)
	assert.Equal(t, 2, bucket.getCount(itemDocKey("23296")))
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "host.42", hostDocKey("42"))
	assert.Equal(t, "hostname.d2ViLTAx", hostNameDocKey("web-01"))
	k := itemKeyDocKey(entity.HostKey{HostID: "42", Key: "vfs.fs.size[/,free]"})
	assert.Regexp(t, `^itemkey\.42\.[-_A-Za-z0-9]+$`, k)
}

// mockKeyValueEntry implements jetstream.KeyValueEntry for the adapter test
type mockKeyValueEntry struct {
	key   string
	value []byte
}

func (m *mockKeyValueEntry) Bucket() string                  { return "monitoring" }
func (m *mockKeyValueEntry) Key() string                     { return m.key }
func (m *mockKeyValueEntry) Value() []byte                   { return m.value }
func (m *mockKeyValueEntry) Revision() uint64                { return 1 }
func (m *mockKeyValueEntry) Created() time.Time              { return time.Now() }
func (m *mockKeyValueEntry) Delta() uint64                   { return 0 }
func (m *mockKeyValueEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

// mockKeyValue overrides the methods the repository calls; the embedded
// interface is nil so any other call panics.
type mockKeyValue struct {
	jetstream.KeyValue
	store   map[string][]byte
	deleted map[string]bool
}

func (m *mockKeyValue) Bucket() string { return "monitoring" }

func (m *mockKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	if m.deleted[key] {
		return nil, jetstream.ErrKeyDeleted
	}
	v, ok := m.store[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &mockKeyValueEntry{key: key, value: v}, nil
}

func TestNewKVRepository_JetStreamAdapter(t *testing.T) {
	kv := &mockKeyValue{
		store: map[string][]byte{
			itemDocKey("1"): []byte(`{"itemid":"1","hostid":"9","key":"agent.ping","valueType":3}`),
			itemDocKey("2"): []byte(`{"itemid":"2"}`),
		},
		deleted: map[string]bool{itemDocKey("2"): true},
	}
	repo := NewKVRepository(kv, nil, logger.NewNopLogger(), time.Second, 4)

	items, err := repo.FetchItems(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "agent.ping", items["1"].Key)
	assert.True(t, items["1"].Numeric())
}
