//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/library-catalog/internal/adapters/cache"
	"github.com/jsamuelsen/library-catalog/internal/adapters/catalogfile"
	"github.com/jsamuelsen/library-catalog/internal/adapters/clients"
	"github.com/jsamuelsen/library-catalog/internal/adapters/clients/acl"
	httpadapter "github.com/jsamuelsen/library-catalog/internal/adapters/http"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http/handlers"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/memory"
	"github.com/jsamuelsen/library-catalog/internal/app"
	"github.com/jsamuelsen/library-catalog/internal/platform/config"
	"github.com/jsamuelsen/library-catalog/internal/platform/telemetry"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

const (
	catalogFile = "../../configs/catalog.yaml"

	hobbitISBN = "9780261102385"
	prideISBN  = "9780141439518"
)

// openLibraryRecords are served by the stub keyed by bibkey.
var openLibraryRecords = map[string]string{
	"ISBN:" + hobbitISBN: `{
		"title": "The Hobbit",
		"authors": [{"name": "J.R.R. Tolkien"}],
		"publish_date": "1937",
		"notes": "Bilbo Baggins leaves the Shire.",
		"subjects": [{"name": "fantasy"}]
	}`,
	"ISBN:" + prideISBN: `{
		"title": "Pride and Prejudice",
		"authors": [{"name": "Jane Austen"}],
		"publish_date": "2003",
		"notes": {"type": "/type/text", "value": "Elizabeth Bennet meets Mr Darcy."},
		"subjects": [{"name": "romanzo"}]
	}`,
}

// newOpenLibraryStub serves the Open Library books API from
// openLibraryRecords. Unknown bibkeys get the empty object Open Library
// returns for them.
func newOpenLibraryStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books" {
			http.NotFound(w, r)
			return
		}

		key := r.URL.Query().Get("bibkeys")

		w.Header().Set("Content-Type", "application/json")

		record, ok := openLibraryRecords[key]
		if !ok {
			_, _ = io.WriteString(w, "{}")
			return
		}

		_, _ = fmt.Fprintf(w, `{%q: %s}`, key, record)
	}))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		BaseURL:     baseURL,
		ServiceName: "openlibrary",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
		Logger: quietLogger(),
	}
}

// stack is the whole service running in-process on a memory store seeded
// from the shipped catalogue file, with Open Library stubbed.
type stack struct {
	server      *httptest.Server
	openLibrary *httptest.Server
	repo        *memory.Repository
}

func (s *stack) URL() string {
	return s.server.URL
}

func (s *stack) Close() {
	s.server.Close()
	s.openLibrary.Close()
}

func startStack(ctx context.Context) (*stack, error) {
	gin.SetMode(gin.TestMode)

	logger := quietLogger()
	repo := memory.New()

	catalog := app.NewCatalogService(app.CatalogServiceConfig{
		Repository:      repo,
		Cache:           cache.New(time.Minute, time.Minute),
		CacheTTL:        time.Minute,
		LoadConcurrency: 4,
		Logger:          logger,
	})

	seeds, err := catalogfile.Load(catalogFile)
	if err != nil {
		return nil, err
	}

	if _, err := catalog.Seed(ctx, seeds); err != nil {
		return nil, err
	}

	olStub := newOpenLibraryStub()

	client, err := clients.New(clientConfig(olStub.URL))
	if err != nil {
		olStub.Close()
		return nil, err
	}

	openLibrary := acl.NewOpenLibrary(client, logger)

	imports := app.NewImportService(app.ImportServiceConfig{
		Lookup:     openLibrary,
		Repository: repo,
		Catalog:    catalog,
		Enabled:    true,
		Logger:     logger,
	})

	registry := ports.NewHealthRegistry(time.Second)
	for _, c := range []ports.HealthChecker{repo, openLibrary} {
		if err := registry.Register(c); err != nil {
			olStub.Close()
			return nil, err
		}
	}

	metrics, err := telemetry.NewCatalogMetrics(prometheus.NewRegistry())
	if err != nil {
		olStub.Close()
		return nil, err
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger: logger,
		AuthConfig: &config.AuthConfig{
			Enabled:       true,
			SubjectHeader: "X-User-ID",
			RolesHeader:   "X-User-Roles",
		},
		AppConfig:      &config.AppConfig{Name: "library-catalog", Version: "integration", Environment: "test"},
		HealthHandler:  handlers.NewHealthHandler(registry, handlers.NewBuildInfo("integration", "none", "unknown")),
		CatalogHandler: handlers.NewCatalogHandler(catalog, metrics),
		ImportHandler:  handlers.NewImportHandler(imports, "centrale", metrics),
		Timeout:        httpadapter.DefaultRequestTimeout,
	})

	return &stack{
		server:      httptest.NewServer(engine),
		openLibrary: olStub,
		repo:        repo,
	}, nil
}

// librarianHeaders authenticates a request as a librarian.
func librarianHeaders(subject string) http.Header {
	h := http.Header{}
	h.Set("X-User-ID", subject)
	h.Set("X-User-Roles", "librarian")

	return h
}

// importISBN posts an import request and returns the status code.
func importISBN(ctx context.Context, client *http.Client, baseURL, library, isbn string, headers http.Header) (int, []byte, error) {
	body := strings.NewReader(fmt.Sprintf(`{"isbn":%q}`, isbn))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/libraries/"+library+"/imports", body)
	if err != nil {
		return 0, nil, err
	}

	req.Header = headers.Clone()
	req.Header.Set("Content-Type", "application/json")

	return send(client, req)
}

// getCount reads the count field of a count endpoint.
func getCount(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	status, body, err := send(client, req)
	if err != nil {
		return 0, err
	}

	if status != http.StatusOK {
		return 0, fmt.Errorf("GET %s: status %d: %s", url, status, body)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	return resp.Count, nil
}

func send(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	return resp.StatusCode, body, err
}
