package storage

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// Provider hands out the Store holding one visitor's attribution state.
type Provider interface {
	StoreFor(visitorID string) Store
}

// RedisProvider namespaces every visitor under the shared redis client.
type RedisProvider struct {
	client *redis.Client
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) StoreFor(visitorID string) Store {
	return NewRedisStore(p.client, visitorID)
}

// MemoryProvider keeps per-visitor stores in process memory. Used by tests and
// as the degraded mode when redis is not configured; state does not survive a
// restart.
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: make(map[string]*MemoryStore)}
}

func (p *MemoryProvider) StoreFor(visitorID string) Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[visitorID]
	if !ok {
		s = NewMemoryStore()
		p.stores[visitorID] = s
	}
	return s
}
