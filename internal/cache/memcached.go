package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedRemote is a Remote backed by memcached. The client has no
// context support, so ctx is ignored.
type MemcachedRemote struct {
	client *memcache.Client
}

func NewMemcachedRemote(hosts ...string) *MemcachedRemote {
	return &MemcachedRemote{client: memcache.New(hosts...)}
}

func (m *MemcachedRemote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (m *MemcachedRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl / time.Second),
	})
}

func (m *MemcachedRemote) Generation(ctx context.Context, key string) (uint64, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(item.Value), 10, 64)
}

func (m *MemcachedRemote) Bump(ctx context.Context, key string) (uint64, error) {
	g, err := m.client.Increment(key, 1)
	if !errors.Is(err, memcache.ErrCacheMiss) {
		return g, err
	}
	// Increment does not create keys.
	err = m.client.Add(&memcache.Item{Key: key, Value: []byte("1")})
	if errors.Is(err, memcache.ErrNotStored) {
		return m.client.Increment(key, 1)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// Close is a no-op; idle connections are dropped by the client itself.
func (m *MemcachedRemote) Close() error {
	return nil
}
