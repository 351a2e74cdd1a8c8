// Package requestscope memoises reads for the lifetime of one request.
//
// The HTTP layer opens a Scope per request; services wrap repository reads
// in Fetch so that asking for the same library twice in one request (for
// example ?library=a&library=a) loads it once:
//
//	lib, err := requestscope.Fetch(ctx, "library:"+name, func(ctx context.Context) (*domain.Library, error) {
//	    return repo.Get(ctx, name)
//	})
//
// Without a Scope in the context, Fetch simply calls the loader.
package requestscope

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Scope holds memoised values for one request.
type Scope struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once  sync.Once
	value any
	err   error
}

// New creates an empty scope.
func New() *Scope {
	return &Scope{entries: make(map[string]*entry)}
}

// FromContext returns the scope stored in ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}

	s, _ := ctx.Value(ctxKey{}).(*Scope)

	return s
}

// WithScope stores s in ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Len reports how many keys have been requested.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Scope) slot(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}

	return e
}

// Fetch returns the memoised value for key, calling load at most once per
// scope. Concurrent callers for the same key wait for the first load.
// Errors are not memoised.
func Fetch[T any](ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	s := FromContext(ctx)
	if s == nil {
		return load(ctx)
	}

	e := s.slot(key)
	e.once.Do(func() {
		e.value, e.err = load(ctx)
	})

	if e.err != nil {
		s.mu.Lock()
		if s.entries[key] == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()

		var zero T

		return zero, e.err
	}

	v, _ := e.value.(T)

	return v, nil
}
