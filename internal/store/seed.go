// file: internal/store/seed.go

package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"macro-resolver/internal/entity"
)

// kvPutter is the part of a KV bucket Seed writes through
type kvPutter interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// Seed writes every fixture document and its index entries into a KV bucket
// using the layout KVRepository reads. It returns the number of keys written.
func Seed(ctx context.Context, kv kvPutter, f *Fixture) (int, error) {
	written := 0
	put := func(key string, value []byte) error {
		if _, err := kv.Put(ctx, key, value); err != nil {
			return fmt.Errorf("failed to put %s: %w", key, err)
		}
		written++
		return nil
	}
	putDoc := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		return put(key, data)
	}

	for i := range f.Hosts {
		h := &f.Hosts[i]
		if err := putDoc(hostDocKey(h.ID), h); err != nil {
			return written, err
		}
		if h.Host != "" {
			if err := put(hostNameDocKey(h.Host), []byte(h.ID)); err != nil {
				return written, err
			}
		}
	}
	for i := range f.Items {
		it := &f.Items[i]
		if err := putDoc(itemDocKey(it.ID), it); err != nil {
			return written, err
		}
		if err := put(itemKeyDocKey(entity.HostKey{HostID: it.HostID, Key: it.Key}), []byte(it.ID)); err != nil {
			return written, err
		}
	}
	for i := range f.Functions {
		if err := putDoc(functionDocKey(f.Functions[i].ID), &f.Functions[i]); err != nil {
			return written, err
		}
	}
	for i := range f.ValueMaps {
		if err := putDoc(valueMapDocKey(f.ValueMaps[i].ID), &f.ValueMaps[i]); err != nil {
			return written, err
		}
	}
	global := f.GlobalMacros
	if global == nil {
		global = []entity.UserMacro{}
	}
	if err := putDoc(globalMacrosDocKey, global); err != nil {
		return written, err
	}
	return written, nil
}
