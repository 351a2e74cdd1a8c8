package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/library-catalog/internal/adapters/cache"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http/dto"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http/handlers"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/memory"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/storetest"
	"github.com/jsamuelsen/library-catalog/internal/app"
	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/mocks"
	"github.com/jsamuelsen/library-catalog/internal/platform/config"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

const hobbitISBN = "9780261102385"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(maxRequestSize int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		MaxRequestSize: maxRequestSize,
	}
}

type catalogStack struct {
	engine *gin.Engine
	repo   *memory.Repository
	lookup *mocks.MockBookLookup
}

func newCatalogStack(t *testing.T, auth *config.AuthConfig) *catalogStack {
	t.Helper()

	ctx := context.Background()
	repo := memory.New()
	require.NoError(t, repo.Create(ctx, "centrale", []domain.Book{
		storetest.Book(t, "Il Signore degli Anelli", "J.R.R. Tolkien", 1954, "fantasy"),
		storetest.Book(t, "Dracula", "Bram Stoker", 1897, "horror"),
	}))
	require.NoError(t, repo.Create(ctx, "quartiere", []domain.Book{
		storetest.Book(t, "Emma", "Jane Austen", 1815, "romanzo"),
	}))

	catalog := app.NewCatalogService(app.CatalogServiceConfig{
		Repository:      repo,
		Cache:           cache.New(time.Minute, time.Minute),
		CacheTTL:        time.Minute,
		LoadConcurrency: 2,
		Logger:          discardLogger(),
	})

	lookup := mocks.NewMockBookLookup(t)
	imports := app.NewImportService(app.ImportServiceConfig{
		Lookup:     lookup,
		Repository: repo,
		Catalog:    catalog,
		Enabled:    true,
		Logger:     discardLogger(),
	})

	registry := ports.NewHealthRegistry(time.Second)
	require.NoError(t, registry.Register(repo))

	srv := New(serverConfig(1<<20), discardLogger())
	SetupRouter(srv.Engine(), RouterConfig{
		Logger:         discardLogger(),
		AuthConfig:     auth,
		AppConfig:      &config.AppConfig{Name: "library-catalog", Version: "test", Environment: "test"},
		HealthHandler:  handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "none", "unknown")),
		CatalogHandler: handlers.NewCatalogHandler(catalog, nil),
		ImportHandler:  handlers.NewImportHandler(imports, "centrale", nil),
		Timeout:        DefaultRequestTimeout,
	})

	return &catalogStack{engine: srv.Engine(), repo: repo, lookup: lookup}
}

func (s *catalogStack) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func countOf(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp.Count
}

func TestSetupRouter_Probes(t *testing.T) {
	s := newCatalogStack(t, &config.AuthConfig{})

	for _, target := range []string{"/-/live", "/-/ready", "/-/build", "/-/metrics"} {
		w := s.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, target)
	}
}

func TestSetupRouter_RequestID(t *testing.T) {
	s := newCatalogStack(t, &config.AuthConfig{})

	t.Run("generated", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/libraries", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/libraries/fantasma/books", "", map[string]string{
			"X-Request-ID": "req-42",
		})

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "req-42", resp.TraceID)
	})
}

func TestSetupRouter_ImportInvalidatesCounts(t *testing.T) {
	s := newCatalogStack(t, &config.AuthConfig{})

	assert.Equal(t, 3, countOf(t, s.do(http.MethodGet, "/api/v1/counts", "", nil)))
	assert.Equal(t, 1, countOf(t, s.do(http.MethodGet, "/api/v1/counts?genre=fantasy", "", nil)))

	s.lookup.On("LookupISBN", mock.Anything, hobbitISBN).
		Return(storetest.Book(t, "The Hobbit", "J.R.R. Tolkien", 1937, "fantasy"), nil).Once()

	w := s.do(http.MethodPost, "/api/v1/imports", `{"isbn":"`+hobbitISBN+`"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, 4, countOf(t, s.do(http.MethodGet, "/api/v1/counts", "", nil)))
	assert.Equal(t, 2, countOf(t, s.do(http.MethodGet, "/api/v1/counts?genre=fantasy", "", nil)))
	assert.Equal(t, 2, countOf(t, s.do(http.MethodGet, "/api/v1/libraries/centrale/count?author=J.R.R.%20Tolkien", "", nil)))
}

func TestSetupRouter_LibrarianGuards(t *testing.T) {
	auth := &config.AuthConfig{Enabled: true, SubjectHeader: "X-User-ID", RolesHeader: "X-User-Roles"}
	body := `{"isbn":"` + hobbitISBN + `"}`

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{
			name:       "reader",
			headers:    map[string]string{"X-User-ID": "u1", "X-User-Roles": "reader"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "librarian",
			headers:    map[string]string{"X-User-ID": "u2", "X-User-Roles": "reader, librarian"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCatalogStack(t, auth)
			if tt.wantStatus == http.StatusCreated {
				s.lookup.On("LookupISBN", mock.Anything, hobbitISBN).
					Return(storetest.Book(t, "The Hobbit", "J.R.R. Tolkien", 1937), nil).Once()
			}

			w := s.do(http.MethodPost, "/api/v1/libraries/quartiere/imports", body, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	t.Run("reads stay open", func(t *testing.T) {
		s := newCatalogStack(t, auth)

		w := s.do(http.MethodGet, "/api/v1/libraries", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewDefaultRouterConfig(t *testing.T) {
	appCfg := &config.AppConfig{Name: "library-catalog"}
	authCfg := &config.AuthConfig{}

	cfg := NewDefaultRouterConfig(discardLogger(), appCfg, authCfg, nil)

	assert.Equal(t, DefaultRequestTimeout, cfg.Timeout)
	assert.Same(t, appCfg, cfg.AppConfig)
	assert.Same(t, authCfg, cfg.AuthConfig)
	assert.Nil(t, cfg.CatalogHandler)
}

func TestSetupRouter_NilHandlers(t *testing.T) {
	engine := gin.New()
	SetupRouter(engine, RouterConfig{Logger: discardLogger()})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/libraries", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New(serverConfig(1<<20), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	errCh, err := srv.Start()
	require.NoError(t, err)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	_, ok := <-errCh
	assert.False(t, ok, "error channel should be closed")
}

func TestServer_StartAddressInUse(t *testing.T) {
	first := New(serverConfig(1<<20), discardLogger())

	_, err := first.Start()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = first.Shutdown(context.Background())
	})

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	cfg := serverConfig(1 << 20)
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)

	_, err = New(cfg, discardLogger()).Start()
	assert.Error(t, err)
}

func TestServer_MaxBodySize(t *testing.T) {
	srv := New(serverConfig(64), discardLogger())
	srv.Engine().POST("/api/v1/imports", func(c *gin.Context) {
		var req dto.ImportRequest
		if err := dto.BindAndValidate(c, &req); err != nil {
			dto.RespondWithBindError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	})

	post := func(body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		srv.Engine().ServeHTTP(w, req)

		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, post(`{"isbn":"`+hobbitISBN+`"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"isbn":"`+strings.Repeat("9", 200)+`"}`))
}
