package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

// ImportRequest asks for a book to be fetched by ISBN and added to a library.
type ImportRequest struct {
	Library string
	ISBN    string
}

// ImportService adds books found in an external catalogue to a library.
type ImportService struct {
	lookup  ports.BookLookup
	repo    ports.LibraryRepository
	catalog *CatalogService
	exec    *Executor
	enabled bool
	logger  *slog.Logger
}

// ImportServiceConfig contains the dependencies of an ImportService.
type ImportServiceConfig struct {
	Lookup     ports.BookLookup
	Repository ports.LibraryRepository
	Catalog    *CatalogService
	Enabled    bool
	Logger     *slog.Logger
}

// NewImportService creates an import service.
func NewImportService(cfg ImportServiceConfig) *ImportService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.ImportService"))

	return &ImportService{
		lookup:  cfg.Lookup,
		repo:    cfg.Repository,
		catalog: cfg.Catalog,
		exec:    NewExecutor(logger),
		enabled: cfg.Enabled,
		logger:  logger,
	}
}

// ImportByISBN looks isbn up and appends the book to library.
func (s *ImportService) ImportByISBN(ctx context.Context, library, isbn string) (domain.Book, error) {
	var normalized string

	op := Operation[ImportRequest, domain.Book, domain.Book, domain.Book]{
		Name: "import_book",
		Validate: func(_ context.Context, in ImportRequest) error {
			if !s.enabled {
				return domain.NewForbiddenError("import", "imports are disabled")
			}

			if strings.TrimSpace(in.Library) == "" {
				return domain.NewValidationError("library", "library name must not be empty")
			}

			parsed, err := domain.ParseISBN(in.ISBN)
			if err != nil {
				return err
			}

			normalized = parsed

			return nil
		},
		Perform: func(ctx context.Context, _ ImportRequest) (domain.Book, error) {
			return s.lookup.LookupISBN(ctx, normalized)
		},
		Verify: func(_ context.Context, _ ImportRequest, found domain.Book) (domain.Book, error) {
			// Lookup adapters build books through NewBook, but a zero Book
			// slipping through would still break the report format.
			book, err := domain.NewBook(found.Name(), found.Author(), found.PublicationYear(),
				found.Synopsis(), found.Genres())
			if err != nil {
				return domain.Book{}, fmt.Errorf("looked up book is not valid: %w", err)
			}

			return book, nil
		},
		Archive: func(ctx context.Context, in ImportRequest, book domain.Book) error {
			if err := s.repo.AddBook(ctx, in.Library, book); err != nil {
				return err
			}

			if s.catalog != nil {
				s.catalog.Invalidate(ctx)
			}

			return nil
		},
		Respond: func(ctx context.Context, in ImportRequest, book domain.Book) (domain.Book, error) {
			s.logger.InfoContext(ctx, "book imported",
				slog.String("library", in.Library),
				slog.String("isbn", normalized),
				slog.String("book", book.Name()),
			)

			return book, nil
		},
	}

	return Execute(ctx, s.exec, op, ImportRequest{Library: library, ISBN: isbn})
}
