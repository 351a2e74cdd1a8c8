// Package memory provides an in-process library repository.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

var (
	_ ports.LibraryRepository = (*Repository)(nil)
	_ ports.HealthChecker     = (*Repository)(nil)
)

// Repository keeps libraries in a map guarded by a RWMutex.
// Stored libraries are immutable; writes swap in a new *domain.Library.
type Repository struct {
	mu        sync.RWMutex
	libraries map[string]*domain.Library
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{libraries: make(map[string]*domain.Library)}
}

// Name implements ports.HealthChecker.
func (r *Repository) Name() string { return "memory" }

// Check implements ports.HealthChecker. An in-process map is always reachable.
func (r *Repository) Check(context.Context) error { return nil }

// Names implements ports.LibraryRepository.
func (r *Repository) Names(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Get implements ports.LibraryRepository.
func (r *Repository) Get(_ context.Context, name string) (*domain.Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lib, ok := r.libraries[name]
	if !ok {
		return nil, domain.NewNotFoundError("library", name)
	}

	return lib, nil
}

// Create implements ports.LibraryRepository.
func (r *Repository) Create(_ context.Context, name string, books []domain.Book) error {
	lib, err := domain.NewLibrary(books)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.libraries[name]; exists {
		return domain.NewConflictError("library", fmt.Sprintf("%q already exists", name))
	}

	r.libraries[name] = lib

	return nil
}

// AddBook implements ports.LibraryRepository.
func (r *Repository) AddBook(_ context.Context, name string, book domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current []domain.Book
	if lib, ok := r.libraries[name]; ok {
		current = lib.Books()
	}

	if ports.DuplicateBook(current, book) {
		return domain.NewConflictError("book",
			fmt.Sprintf("%q by %s (%d) already in library %q",
				book.Name(), book.Author(), book.PublicationYear(), name))
	}

	lib, err := domain.NewLibrary(append(slices.Clip(current), book))
	if err != nil {
		return err
	}

	r.libraries[name] = lib

	return nil
}

// Replace swaps the whole content for seeds in one step. Readers see either
// the old or the new catalogue, never a mix.
func (r *Repository) Replace(seeds []ports.LibrarySeed) error {
	next := make(map[string]*domain.Library, len(seeds))

	for _, seed := range seeds {
		if _, dup := next[seed.Name]; dup {
			return domain.NewConflictError("library", fmt.Sprintf("%q declared twice", seed.Name))
		}

		lib, err := domain.NewLibrary(seed.Books)
		if err != nil {
			return fmt.Errorf("library %q: %w", seed.Name, err)
		}

		next[seed.Name] = lib
	}

	r.mu.Lock()
	r.libraries = next
	r.mu.Unlock()

	return nil
}
