package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jsamuelsen/library-catalog/internal/adapters/clients"
	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

const openLibraryBooksPath = "/api/books"

var (
	_ ports.BookLookup    = (*OpenLibrary)(nil)
	_ ports.HealthChecker = (*OpenLibrary)(nil)
)

// OpenLibrary resolves ISBNs through the Open Library books API.
type OpenLibrary struct {
	client *clients.Client
	logger *slog.Logger
}

// NewOpenLibrary wraps client, whose BaseURL must point at Open Library.
// Panics if client is nil.
func NewOpenLibrary(client *clients.Client, logger *slog.Logger) *OpenLibrary {
	if client == nil {
		panic("OpenLibrary: client is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &OpenLibrary{client: client, logger: logger}
}

func bookQuery(isbn string) url.Values {
	q := url.Values{
		"jscmd":  {"data"},
		"format": {"json"},
	}

	if isbn != "" {
		q.Set("bibkeys", "ISBN:"+isbn)
	}

	return q
}

// LookupISBN implements ports.BookLookup. isbn must already be normalised.
func (o *OpenLibrary) LookupISBN(ctx context.Context, isbn string) (domain.Book, error) {
	logger := logging.FromContextOr(ctx, o.logger)
	logger.Log(ctx, logging.LevelTrace, "looking up isbn", slog.String("isbn", isbn))

	resp, err := o.client.Get(ctx, openLibraryBooksPath, bookQuery(isbn))
	if err != nil {
		return domain.Book{}, MapClientError(err, o.Name(), "isbn lookup")
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()

		logger.WarnContext(ctx, "open library error response",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", readErrorBody(resp.Body)),
		)

		return domain.Book{}, MapStatus(resp, o.Name(), "isbn", isbn)
	}

	records, err := DecodeResponse[map[string]olBook](resp.Body)
	if err != nil {
		return domain.Book{}, domain.NewUnavailableError(o.Name(), err.Error())
	}

	ext, ok := (*records)["ISBN:"+isbn]
	if !ok {
		return domain.Book{}, domain.NewNotFoundError("isbn", isbn)
	}

	book, err := translateBook(isbn, &ext)
	if err != nil {
		return domain.Book{}, err
	}

	logger.DebugContext(ctx, "isbn resolved",
		slog.String("isbn", isbn),
		slog.String("title", book.Name()),
		slog.String("author", book.Author()),
	)

	return book, nil
}

// Name implements ports.HealthChecker.
func (o *OpenLibrary) Name() string {
	return o.client.ServiceName()
}

// Check implements ports.HealthChecker with an empty books query.
func (o *OpenLibrary) Check(ctx context.Context) error {
	resp, err := o.client.Get(ctx, openLibraryBooksPath, bookQuery(""))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open library returned status %d", resp.StatusCode)
	}

	return nil
}
