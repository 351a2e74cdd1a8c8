// Package storetest holds the behaviour every ports.LibraryRepository
// implementation must share. Adapter tests call Run with a fresh repository.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) ports.LibraryRepository

// Book builds a valid book or fails the test.
func Book(t *testing.T, name, author string, year int, genres ...string) domain.Book {
	t.Helper()

	if genres == nil {
		genres = []string{}
	}

	b, err := domain.NewBook(name, author, year, "Sinossi di "+name, genres)
	require.NoError(t, err)

	return b
}

// Run exercises the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	ctx := context.Background()

	t.Run("empty repository has no names", func(t *testing.T) {
		names, err := newRepo(t).Names(ctx)

		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("create then get preserves order and fields", func(t *testing.T) {
		repo := newRepo(t)
		books := []domain.Book{
			Book(t, "Signore degli Anelli", "J.R.R. Tolkien", 1954, "fantasy", "avventura"),
			Book(t, "Dracula", "Bram Stoker", 1897, "horror"),
			Book(t, "Senza genere", "Anonimo", -50),
		}

		require.NoError(t, repo.Create(ctx, "centrale", books))

		lib, err := repo.Get(ctx, "centrale")
		require.NoError(t, err)
		require.Equal(t, 3, lib.BookCount())

		got := lib.Books()
		for i, want := range books {
			assert.Equal(t, want.Name(), got[i].Name())
			assert.Equal(t, want.Author(), got[i].Author())
			assert.Equal(t, want.PublicationYear(), got[i].PublicationYear())
			assert.Equal(t, want.Synopsis(), got[i].Synopsis())
			assert.Equal(t, want.Genres(), got[i].Genres())
		}
	})

	t.Run("create empty library", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "vuota", []domain.Book{}))

		lib, err := repo.Get(ctx, "vuota")
		require.NoError(t, err)
		assert.Equal(t, 0, lib.BookCount())
	})

	t.Run("names are sorted", func(t *testing.T) {
		repo := newRepo(t)

		for _, n := range []string{"zeta", "alfa", "mu"} {
			require.NoError(t, repo.Create(ctx, n, []domain.Book{}))
		}

		names, err := repo.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alfa", "mu", "zeta"}, names)
	})

	t.Run("get unknown library is not found", func(t *testing.T) {
		_, err := newRepo(t).Get(ctx, "fantasma")

		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("create twice conflicts", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "centrale", []domain.Book{}))

		err := repo.Create(ctx, "centrale", []domain.Book{})
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("add book appends", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "centrale", []domain.Book{
			Book(t, "Dracula", "Bram Stoker", 1897, "horror"),
		}))
		require.NoError(t, repo.AddBook(ctx, "centrale", Book(t, "Emma", "Jane Austen", 1815)))

		lib, err := repo.Get(ctx, "centrale")
		require.NoError(t, err)
		require.Equal(t, 2, lib.BookCount())
		assert.Equal(t, "Emma", lib.Books()[1].Name())
	})

	t.Run("add book creates missing library", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.AddBook(ctx, "nuova", Book(t, "Emma", "Jane Austen", 1815)))

		lib, err := repo.Get(ctx, "nuova")
		require.NoError(t, err)
		assert.Equal(t, 1, lib.BookCount())
	})

	t.Run("add duplicate book conflicts", func(t *testing.T) {
		repo := newRepo(t)
		emma := Book(t, "Emma", "Jane Austen", 1815)

		require.NoError(t, repo.AddBook(ctx, "centrale", emma))

		err := repo.AddBook(ctx, "centrale", emma)
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))

		lib, err := repo.Get(ctx, "centrale")
		require.NoError(t, err)
		assert.Equal(t, 1, lib.BookCount())
	})

	t.Run("returned library is detached", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "centrale", []domain.Book{}))

		lib, err := repo.Get(ctx, "centrale")
		require.NoError(t, err)

		require.NoError(t, repo.AddBook(ctx, "centrale", Book(t, "Emma", "Jane Austen", 1815)))
		assert.Equal(t, 0, lib.BookCount())
	})
}
