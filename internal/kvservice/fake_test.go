// internal/kvservice/fake_test.go
package kvservice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store"
)

// fakeConfig implements store.StoreConfig
type fakeConfig struct {
	Host string
	Port string
}

func (c *fakeConfig) Validate() error {
	if c.Host == "" || c.Port == "" {
		return fmt.Errorf("fake: %w", store.ErrConfigMissing)
	}
	return nil
}

func (c *fakeConfig) GetEndpoints() []string {
	return []string{c.Host + ":" + c.Port}
}

func (c *fakeConfig) String() string {
	return "fakeConfig{" + c.Host + ":" + c.Port + "}"
}

type entry struct {
	value     string
	isSet     bool
	members   map[string]struct{}
	expiresAt time.Time
}

// memStore is an in-memory store.KVStore with redis-like semantics
type memStore struct {
	mu     sync.Mutex
	data   map[string]*entry
	ttls   map[string]time.Duration
	cfg    *fakeConfig
	closed bool
}

func newMemStore(cfg *fakeConfig) *memStore {
	return &memStore{
		data: make(map[string]*entry),
		ttls: make(map[string]time.Duration),
		cfg:  cfg,
	}
}

func (m *memStore) lookup(key string) *entry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		return "", false, nil
	}
	if e.isSet {
		return "", false, fmt.Errorf("WRONGTYPE Operation against a key holding the wrong kind of value")
	}
	return e.value, true, nil
}

func (m *memStore) Set(_ context.Context, key, value string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{value: value}
	ttl := time.Duration(store.TTLSeconds(expiry)) * time.Second
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.ttls[key] = ttl
	m.data[key] = e
	return nil
}

func (m *memStore) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.lookup(key)
	if e == nil {
		e = &entry{isSet: true, members: make(map[string]struct{})}
		m.data[key] = e
	}
	for _, mem := range members {
		e.members[mem] = struct{}{}
	}
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	if e := m.lookup(key); e != nil {
		for mem := range e.members {
			out = append(out, mem)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookup(key) == nil {
		return 0, nil
	}
	delete(m.data, key)
	return 1, nil
}

func (m *memStore) Ping(context.Context) error {
	return nil
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memStore) GetConfig() store.StoreConfig {
	return m.cfg
}

// fakeBackend registers a constructor under a unique name and counts calls
type fakeBackend struct {
	name  string
	calls atomic.Int32
	// hook runs before the store is returned; a non-nil error fails the connect
	hook  func(ctx context.Context) error
	last  atomic.Pointer[memStore]
}

func registerFake(t *testing.T, hook func(ctx context.Context) error) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{name: "fake-" + t.Name(), hook: hook}
	Register(fb.name, func(ctx context.Context, options Config, _ *observability.SLogger) (store.KVStore, error) {
		fb.calls.Add(1)
		cfg, ok := options.(*fakeConfig)
		if !ok {
			return nil, &store.InvalidConfigurationError{Store: fb.name, Config: options}
		}
		if fb.hook != nil {
			if err := fb.hook(ctx); err != nil {
				return nil, err
			}
		}
		ms := newMemStore(cfg)
		fb.last.Store(ms)
		return ms, nil
	})
	t.Cleanup(func() { Unregister(fb.name) })
	return fb
}
