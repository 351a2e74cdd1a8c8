// Package ports defines the contracts between the catalogue use cases and
// the infrastructure that serves them.
//
// Methods take a context first and return domain types and domain errors
// (domain.ErrNotFound, domain.ErrConflict, domain.ErrUnavailable).
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

// LibraryRepository stores named libraries.
//
// Libraries are immutable, so writes replace the stored library with a new
// one rather than mutating it in place.
type LibraryRepository interface {
	// Names lists every library name in ascending order.
	Names(ctx context.Context) ([]string, error)

	// Get returns the named library.
	// Returns domain.ErrNotFound if no library has that name.
	Get(ctx context.Context, name string) (*domain.Library, error)

	// Create stores a new library holding books in order.
	// Returns domain.ErrConflict if the name is taken.
	Create(ctx context.Context, name string, books []domain.Book) error

	// AddBook appends book to the named library, creating the library when
	// it does not exist yet.
	// Returns domain.ErrConflict if the library already holds a book with
	// the same name, author and publication year.
	AddBook(ctx context.Context, name string, book domain.Book) error
}

// LibrarySeed is a named library as read from a catalogue source.
type LibrarySeed struct {
	Name  string
	Books []domain.Book
}

// BookLookup resolves bibliographic data from an external catalogue.
type BookLookup interface {
	// LookupISBN returns the book registered under isbn.
	// Returns domain.ErrNotFound for unknown ISBNs and domain.ErrUnavailable
	// when the catalogue cannot be reached.
	LookupISBN(ctx context.Context, isbn string) (domain.Book, error)
}

// Cache stores opaque values for a limited time.
type Cache interface {
	// Get retrieves a value.
	// Returns domain.ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A ttl of 0 uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every value.
	Clear(ctx context.Context) error
}

// DuplicateBook reports whether books already holds an entry with the same
// name, author and publication year as book. Repositories use it to
// enforce the AddBook conflict rule.
func DuplicateBook(books []domain.Book, book domain.Book) bool {
	for _, b := range books {
		if b.Name() == book.Name() && b.Author() == book.Author() &&
			b.PublicationYear() == book.PublicationYear() {
			return true
		}
	}

	return false
}
