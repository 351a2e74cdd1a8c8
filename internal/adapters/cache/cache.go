// Package cache adapts patrickmn/go-cache to ports.Cache.
package cache

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

var _ ports.Cache = (*Memory)(nil)

// Memory is an expiring in-process cache.
type Memory struct {
	items *gocache.Cache
}

// New creates a cache whose entries live for ttl unless Set says otherwise.
// Expired entries are purged every cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Memory {
	return &Memory{items: gocache.New(ttl, cleanupInterval)}
}

// Get implements ports.Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	return slices.Clone(b), nil
}

// Set implements ports.Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}

	m.items.Set(key, slices.Clone(value), ttl)

	return nil
}

// Delete implements ports.Cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)

	return nil
}

// Clear implements ports.Cache.
func (m *Memory) Clear(context.Context) error {
	m.items.Flush()

	return nil
}

// Len reports the number of stored entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}

// Noop is a cache that never stores anything. Every Get misses.
type Noop struct{}

var _ ports.Cache = Noop{}

func (Noop) Get(_ context.Context, key string) ([]byte, error) {
	return nil, domain.NewNotFoundError("cache entry", key)
}

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Clear(context.Context) error { return nil }
