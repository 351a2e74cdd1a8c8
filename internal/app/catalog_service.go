// Package app holds the catalogue use cases. Services depend on ports,
// never on concrete stores or clients.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/library-catalog/internal/app/requestscope"
	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

const (
	defaultLoadConcurrency = 4
	instrumentationName    = "github.com/jsamuelsen/library-catalog/internal/app"
)

// CatalogService answers count and report queries over named libraries.
type CatalogService struct {
	repo            ports.LibraryRepository
	cache           ports.Cache
	cacheTTL        time.Duration
	loadConcurrency int
	logger          *slog.Logger
	tracer          trace.Tracer

	// generation counts invalidations; mu orders them against cache writes.
	mu         sync.Mutex
	generation uint64
}

// CatalogServiceConfig contains the dependencies of a CatalogService.
// Cache is optional.
type CatalogServiceConfig struct {
	Repository      ports.LibraryRepository
	Cache           ports.Cache
	CacheTTL        time.Duration
	LoadConcurrency int
	Logger          *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(cfg CatalogServiceConfig) *CatalogService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.LoadConcurrency
	if limit <= 0 {
		limit = defaultLoadConcurrency
	}

	return &CatalogService{
		repo:            cfg.Repository,
		cache:           cfg.Cache,
		cacheTTL:        cfg.CacheTTL,
		loadConcurrency: limit,
		logger:          logger.With(slog.String("component", "app.CatalogService")),
		tracer:          otel.Tracer(instrumentationName),
	}
}

func (s *CatalogService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}

// LibraryNames lists every stored library.
func (s *CatalogService) LibraryNames(ctx context.Context) ([]string, error) {
	names, err := s.repo.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing libraries: %w", err)
	}

	return names, nil
}

func (s *CatalogService) library(ctx context.Context, name string) (*domain.Library, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("library", "library name must not be empty")
	}

	lib, err := requestscope.Fetch(ctx, "library:"+name, func(ctx context.Context) (*domain.Library, error) {
		return s.repo.Get(ctx, name)
	})
	if err != nil {
		return nil, fmt.Errorf("loading library %q: %w", name, err)
	}

	return lib, nil
}

// Books returns the books of a library in catalogue order.
func (s *CatalogService) Books(ctx context.Context, name string) ([]domain.Book, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return nil, err
	}

	return lib.Books(), nil
}

// Report renders the library report.
func (s *CatalogService) Report(ctx context.Context, name string) (string, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return "", err
	}

	return lib.String(), nil
}

// BookCount counts the books of a library.
func (s *CatalogService) BookCount(ctx context.Context, name string) (int, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return 0, err
	}

	return lib.BookCount(), nil
}

// BooksOfAuthor counts the books of author in a library.
func (s *CatalogService) BooksOfAuthor(ctx context.Context, name, author string) (int, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return 0, err
	}

	return lib.BooksOfAuthor(author), nil
}

// BooksPublishedBetween counts the books of a library published in the
// inclusive year range. Reversed bounds are accepted.
func (s *CatalogService) BooksPublishedBetween(ctx context.Context, name string, yearFrom, yearTo int) (int, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return 0, err
	}

	return lib.BooksPublishedBetween(yearFrom, yearTo), nil
}

// BooksOfGenre counts the books of a library listing genre.
func (s *CatalogService) BooksOfGenre(ctx context.Context, name, genre string) (int, error) {
	lib, err := s.library(ctx, name)
	if err != nil {
		return 0, err
	}

	return lib.BooksOfGenre(genre), nil
}

// TotalBookCount counts books across libraries. No names means every library.
func (s *CatalogService) TotalBookCount(ctx context.Context, names []string) (int, error) {
	return s.total(ctx, "count", names, domain.CountBooks)
}

// TotalBooksOfAuthor counts the books of author across libraries.
func (s *CatalogService) TotalBooksOfAuthor(ctx context.Context, names []string, author string) (int, error) {
	return s.total(ctx, "author="+author, names, func(libs []*domain.Library) (int, error) {
		return domain.CountBooksOfAuthor(libs, author)
	})
}

// TotalBooksPublishedBetween counts books published in the year range across libraries.
func (s *CatalogService) TotalBooksPublishedBetween(ctx context.Context, names []string, yearFrom, yearTo int) (int, error) {
	if yearFrom > yearTo {
		yearFrom, yearTo = yearTo, yearFrom
	}

	key := "years=" + strconv.Itoa(yearFrom) + ".." + strconv.Itoa(yearTo)

	return s.total(ctx, key, names, func(libs []*domain.Library) (int, error) {
		return domain.CountBooksPublishedBetween(libs, yearFrom, yearTo)
	})
}

// TotalBooksOfGenre counts the books listing genre across libraries.
func (s *CatalogService) TotalBooksOfGenre(ctx context.Context, names []string, genre string) (int, error) {
	return s.total(ctx, "genre="+genre, names, func(libs []*domain.Library) (int, error) {
		return domain.CountBooksOfGenre(libs, genre)
	})
}

func (s *CatalogService) total(
	ctx context.Context,
	query string,
	names []string,
	count func([]*domain.Library) (int, error),
) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.total", trace.WithAttributes(
		attribute.String("catalog.query", query),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(names) == 0 {
		all, err := s.LibraryNames(ctx)
		if err != nil {
			return 0, err
		}

		names = all
	}

	span.SetAttributes(attribute.Int("catalog.libraries", len(names)))

	gen := s.currentGeneration()

	key := totalCacheKey(query, names)
	if n, ok := s.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("catalog.cache_hit", true))
		return n, nil
	}

	loaders := make([]func(context.Context) (*domain.Library, error), len(names))
	for i, name := range names {
		loaders[i] = func(ctx context.Context) (*domain.Library, error) {
			return s.library(ctx, name)
		}
	}

	libs, err := ParallelLimit(ctx, s.loadConcurrency, loaders...)
	if err != nil {
		return 0, err
	}

	n, err = count(libs)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", query, err)
	}

	s.store(ctx, gen, key, n)

	return n, nil
}

// Duplicated names count their library once per occurrence, so only the
// order is normalised.
func totalCacheKey(query string, names []string) string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	return "total|" + query + "|" + strings.Join(sorted, "\x1f")
}

func (s *CatalogService) cached(ctx context.Context, key string) (int, bool) {
	if s.cache == nil {
		return 0, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log(ctx).WarnContext(ctx, "cache read failed", slog.Any("error", err))
		}

		return 0, false
	}

	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}

	return n, true
}

func (s *CatalogService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

// store drops the result when an invalidation ran after gen was read, since
// the libraries it was counted from may predate the write.
func (s *CatalogService) store(ctx context.Context, gen uint64, key string, n int) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log(ctx).DebugContext(ctx, "discarding total computed before invalidation", slog.String("key", key))
		return
	}

	if err := s.cache.Set(ctx, key, []byte(strconv.Itoa(n)), s.cacheTTL); err != nil {
		s.log(ctx).WarnContext(ctx, "cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops every memoised aggregate. Call it after any write.
func (s *CatalogService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++

	if s.cache == nil {
		return
	}

	if err := s.cache.Clear(ctx); err != nil {
		s.log(ctx).WarnContext(ctx, "cache clear failed", slog.Any("error", err))
	}
}

// Seed creates the given libraries, leaving existing ones untouched.
// It returns how many libraries were created.
func (s *CatalogService) Seed(ctx context.Context, seeds []ports.LibrarySeed) (int, error) {
	created := make(chan struct{}, len(seeds))

	err := FanOut(ctx, s.loadConcurrency, seeds, func(ctx context.Context, seed ports.LibrarySeed) error {
		err := s.repo.Create(ctx, seed.Name, seed.Books)

		switch {
		case err == nil:
			created <- struct{}{}
		case domain.IsConflict(err):
			s.log(ctx).DebugContext(ctx, "library already present", slog.String("library", seed.Name))
		default:
			return fmt.Errorf("seeding library %q: %w", seed.Name, err)
		}

		return nil
	})

	close(created)

	n := len(created)
	if n > 0 {
		s.Invalidate(ctx)
	}

	if err != nil {
		return n, err
	}

	s.log(ctx).InfoContext(ctx, "catalogue seeded",
		slog.Int("libraries", len(seeds)),
		slog.Int("created", n),
	)

	return n, nil
}
