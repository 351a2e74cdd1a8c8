package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

const (
	tableLibraries = "libraries"
	tableBooks     = "books"

	colName            = "name"
	colLibraryName     = "library_name"
	colPosition        = "position"
	colAuthor          = "author"
	colPublicationYear = "publication_year"
	colSynopsis        = "synopsis"
	colGenres          = "genres"
)

var (
	_ ports.LibraryRepository = (*Store)(nil)
	_ ports.HealthChecker     = (*Store)(nil)
)

// Store is a SQL-backed library repository.
type Store struct {
	db           DB
	dialect      goqu.DialectWrapper
	name         string
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithQueryTimeout bounds every repository call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) { s.queryTimeout = d }
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store. dialect must be a registered goqu dialect
// ("sqlite3", "postgres"); name identifies the store in health checks.
func New(db DB, dialect, name string, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: goqu.Dialect(dialect),
		name:    name,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return s.name }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}

	return ctx, func() {}
}

func (s *Store) unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%s: %w", op, errors.Join(domain.NewUnavailableError(s.name, err.Error()), err))
}

// inTx runs fn in a transaction. Failures that are not already domain
// errors (begin, commit, driver faults) are reported as unavailable.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx DB) error) error {
	err := s.db.InTx(ctx, fn)
	if err == nil || domain.IsNotFound(err) || domain.IsConflict(err) ||
		domain.IsUnavailable(err) || domain.IsValidation(err) {
		return err
	}

	return s.unavailable(op, err)
}

// Names implements ports.LibraryRepository.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := s.dialect.From(tableLibraries).
		Prepared(true).
		Select(colName).
		Order(goqu.I(colName).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building names query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.unavailable("listing libraries", err)
	}
	defer rows.Close()

	names := make([]string, 0)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning library name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, s.unavailable("listing libraries", err)
	}

	return names, nil
}

// Get implements ports.LibraryRepository.
func (s *Store) Get(ctx context.Context, name string) (*domain.Library, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var lib *domain.Library

	err := s.inTx(ctx, "loading library", func(tx DB) error {
		exists, err := s.libraryExists(ctx, tx, name)
		if err != nil {
			return err
		}

		if !exists {
			return domain.NewNotFoundError("library", name)
		}

		books, err := s.books(ctx, tx, name)
		if err != nil {
			return err
		}

		lib, err = domain.NewLibrary(books)

		return err
	})
	if err != nil {
		return nil, err
	}

	return lib, nil
}

// Create implements ports.LibraryRepository.
func (s *Store) Create(ctx context.Context, name string, books []domain.Book) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, "creating library", func(tx DB) error {
		exists, err := s.libraryExists(ctx, tx, name)
		if err != nil {
			return err
		}

		if exists {
			return domain.NewConflictError("library", fmt.Sprintf("%q already exists", name))
		}

		if err := s.insertLibrary(ctx, tx, name); err != nil {
			return err
		}

		if err := s.insertBooks(ctx, tx, name, 0, books); err != nil {
			return err
		}

		logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "library created",
			slog.String("store", s.name),
			slog.String("library", name),
			slog.Int("books", len(books)),
		)

		return nil
	})
}

// AddBook implements ports.LibraryRepository.
func (s *Store) AddBook(ctx context.Context, name string, book domain.Book) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, "adding book", func(tx DB) error {
		exists, err := s.libraryExists(ctx, tx, name)
		if err != nil {
			return err
		}

		if !exists {
			if err := s.insertLibrary(ctx, tx, name); err != nil {
				return err
			}
		}

		current, err := s.books(ctx, tx, name)
		if err != nil {
			return err
		}

		if ports.DuplicateBook(current, book) {
			return domain.NewConflictError("book",
				fmt.Sprintf("%q by %s (%d) already in library %q",
					book.Name(), book.Author(), book.PublicationYear(), name))
		}

		return s.insertBooks(ctx, tx, name, len(current), []domain.Book{book})
	})
}

func (s *Store) libraryExists(ctx context.Context, tx DB, name string) (bool, error) {
	query, args, err := s.dialect.From(tableLibraries).
		Prepared(true).
		Select(goqu.COUNT(colName)).
		Where(goqu.C(colName).Eq(name)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return false, s.unavailable("checking library", err)
	}
	defer rows.Close()

	var n int64

	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("scanning library count: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return false, s.unavailable("checking library", err)
	}

	return n > 0, nil
}

func (s *Store) books(ctx context.Context, tx DB, library string) ([]domain.Book, error) {
	query, args, err := s.dialect.From(tableBooks).
		Prepared(true).
		Select(colName, colAuthor, colPublicationYear, colSynopsis, colGenres).
		Where(goqu.C(colLibraryName).Eq(library)).
		Order(goqu.I(colPosition).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building books query: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, s.unavailable("loading books", err)
	}
	defer rows.Close()

	books := make([]domain.Book, 0)

	for rows.Next() {
		var (
			name, author, synopsis, genresJSON string
			year                               int64
		)

		if err := rows.Scan(&name, &author, &year, &synopsis, &genresJSON); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}

		genres := make([]string, 0)
		if err := json.Unmarshal([]byte(genresJSON), &genres); err != nil {
			return nil, fmt.Errorf("decoding genres of %q: %w", name, err)
		}

		if genres == nil {
			genres = []string{}
		}

		b, err := domain.NewBook(name, author, int(year), synopsis, genres)
		if err != nil {
			return nil, fmt.Errorf("stored book %q in %q: %w", name, library, err)
		}

		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, s.unavailable("loading books", err)
	}

	return books, nil
}

func (s *Store) insertLibrary(ctx context.Context, tx DB, name string) error {
	query, args, err := s.dialect.Insert(tableLibraries).
		Prepared(true).
		Rows(goqu.Record{colName: name}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building library insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return s.unavailable("inserting library", err)
	}

	return nil
}

func (s *Store) insertBooks(ctx context.Context, tx DB, library string, firstPosition int, books []domain.Book) error {
	if len(books) == 0 {
		return nil
	}

	records := make([]any, len(books))

	for i, b := range books {
		genres, err := json.Marshal(b.Genres())
		if err != nil {
			return fmt.Errorf("encoding genres of %q: %w", b.Name(), err)
		}

		records[i] = goqu.Record{
			colLibraryName:     library,
			colPosition:        firstPosition + i,
			colName:            b.Name(),
			colAuthor:          b.Author(),
			colPublicationYear: b.PublicationYear(),
			colSynopsis:        b.Synopsis(),
			colGenres:          string(genres),
		}
	}

	query, args, err := s.dialect.Insert(tableBooks).
		Prepared(true).
		Rows(records...).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building books insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return s.unavailable("inserting books", err)
	}

	return nil
}
