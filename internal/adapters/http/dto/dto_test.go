package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/library-catalog/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}

	return c, w
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		ErrorCodeNotFound:     http.StatusNotFound,
		ErrorCodeConflict:     http.StatusConflict,
		ErrorCodeValidation:   http.StatusBadRequest,
		ErrorCodeBadRequest:   http.StatusBadRequest,
		ErrorCodeForbidden:    http.StatusForbidden,
		ErrorCodeUnauthorized: http.StatusUnauthorized,
		ErrorCodeUnavailable:  http.StatusServiceUnavailable,
		ErrorCodeTimeout:      http.StatusGatewayTimeout,
		ErrorCodeInternal:     http.StatusInternalServerError,
		"SOMETHING_ELSE":      http.StatusInternalServerError,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, HTTPStatusFromCode(code))
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDetails map[string]string
	}{
		{
			name:        "validation with field",
			err:         domain.NewValidationError("name", "must not be blank"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantDetails: map[string]string{"name": "must not be blank"},
		},
		{
			name:       "nil argument",
			err:        domain.NewNilArgumentError("genres"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrorCodeValidation,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("loading: %w", domain.NewNotFoundError("library", "fantasma")),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrorCodeNotFound,
		},
		{
			name:       "conflict",
			err:        domain.NewConflictError("book", "already there"),
			wantStatus: http.StatusConflict,
			wantCode:   ErrorCodeConflict,
		},
		{
			name:       "forbidden",
			err:        domain.NewForbiddenError("import", "imports are disabled"),
			wantStatus: http.StatusForbidden,
			wantCode:   ErrorCodeForbidden,
		},
		{
			name:       "unavailable",
			err:        domain.NewUnavailableError("openlibrary", "timeout"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrorCodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.err.Error(), resp.Error.Message)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
		})
	}

	t.Run("nil", func(t *testing.T) {
		status, resp := MapDomainError(nil)

		assert.Equal(t, http.StatusOK, status)
		assert.Nil(t, resp)
	})

	t.Run("unknown errors hide their text", func(t *testing.T) {
		status, resp := MapDomainError(errors.New("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ErrorCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "password")
	})
}

func TestGetTraceID(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "gin value",
			setup: func(c *gin.Context) { c.Set(ContextKeyTraceID, "trace-123") },
			want:  "trace-123",
		},
		{
			name:  "request id header",
			setup: func(c *gin.Context) { c.Request.Header.Set("X-Request-ID", "req-456") },
			want:  "req-456",
		},
		{
			name: "gin value wins over header",
			setup: func(c *gin.Context) {
				c.Set(ContextKeyTraceID, "trace-123")
				c.Request.Header.Set("X-Request-ID", "req-456")
			},
			want: "trace-123",
		},
		{
			name:  "nothing set",
			setup: func(*gin.Context) {},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/", "")
			tt.setup(c)

			assert.Equal(t, tt.want, GetTraceID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	c.Set(ContextKeyTraceID, "trace-789")

	HandleError(c, domain.NewNotFoundError("library", "fantasma"))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "fantasma")
	assert.Equal(t, "trace-789", resp.TraceID)
}

func TestAbortWithCode(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")

	AbortWithCode(c, ErrorCodeUnauthorized, "authentication required")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	t.Run("first page", func(t *testing.T) {
		page, err := Paginate(items, PaginationRequest{Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1}, page.Items)
		assert.True(t, page.HasMore)
		assert.NotEmpty(t, page.NextCursor)
	})

	t.Run("follow cursors to the end", func(t *testing.T) {
		var (
			got    []int
			cursor string
		)

		for {
			page, err := Paginate(items, PaginationRequest{Cursor: cursor, Limit: 2})
			require.NoError(t, err)

			got = append(got, page.Items...)
			if !page.HasMore {
				assert.Empty(t, page.NextCursor)
				break
			}

			cursor = page.NextCursor
		}

		assert.Equal(t, items, got)
	})

	t.Run("empty collection", func(t *testing.T) {
		page, err := Paginate([]int{}, PaginationRequest{})
		require.NoError(t, err)

		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasMore)
	})

	t.Run("page does not alias input", func(t *testing.T) {
		page, err := Paginate(items, PaginationRequest{Limit: 5})
		require.NoError(t, err)

		page.Items[0] = 99
		assert.Equal(t, 0, items[0])
	})

	t.Run("cursor past the end", func(t *testing.T) {
		_, err := Paginate(items, PaginationRequest{Cursor: EncodeCursor(CursorData{Position: 9})})
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("garbage cursor", func(t *testing.T) {
		_, err := Paginate(items, PaginationRequest{Cursor: "%%%"})
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}

func TestGetLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{7, 7},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}

	for _, tt := range tests {
		p := PaginationRequest{Limit: tt.limit}
		assert.Equal(t, tt.want, p.GetLimit(), "limit %d", tt.limit)
	}
}

func TestDecodeCursor(t *testing.T) {
	data, err := DecodeCursor(EncodeCursor(CursorData{Position: 40}))
	require.NoError(t, err)
	assert.Equal(t, 40, data.Position)

	_, err = DecodeCursor(EncodeCursor(CursorData{Position: -1}))
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func TestCountQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     CountQuery
		wantErr   bool
		wantField string
		wantKind  string
		wantDesc  string
	}{
		{
			name:     "nothing counts books",
			query:    CountQuery{},
			wantKind: QueryBooks,
			wantDesc: "books",
		},
		{
			name:     "author",
			query:    CountQuery{Author: strPtr("Bram Stoker")},
			wantKind: QueryAuthor,
			wantDesc: "author=Bram Stoker",
		},
		{
			name:     "genre",
			query:    CountQuery{Genre: strPtr("horror")},
			wantKind: QueryGenre,
			wantDesc: "genre=horror",
		},
		{
			name:     "empty author",
			query:    CountQuery{Author: strPtr("")},
			wantKind: QueryAuthor,
			wantDesc: "author=",
		},
		{
			name:      "empty author and empty genre",
			query:     CountQuery{Author: strPtr(""), Genre: strPtr("")},
			wantErr:   true,
			wantField: "query",
		},
		{
			name:     "year range",
			query:    CountQuery{From: intPtr(-50), To: intPtr(1900)},
			wantKind: QueryPublished,
			wantDesc: "from=-50&to=1900",
		},
		{
			name:      "from without to",
			query:     CountQuery{From: intPtr(1900)},
			wantErr:   true,
			wantField: "to",
		},
		{
			name:      "to without from",
			query:     CountQuery{To: intPtr(1900)},
			wantErr:   true,
			wantField: "from",
		},
		{
			name:      "author and genre",
			query:     CountQuery{Author: strPtr("Bram Stoker"), Genre: strPtr("horror")},
			wantErr:   true,
			wantField: "query",
		},
		{
			name:      "blank library",
			query:     CountQuery{Libraries: []string{"centrale", " "}},
			wantErr:   true,
			wantField: "library[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.query)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, ValidationErrors(err), tt.wantField)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, tt.query.Kind())
			assert.Equal(t, tt.wantDesc, tt.query.Describe())
		})
	}
}

func TestBindQueryAndValidate(t *testing.T) {
	t.Run("repeated library and range", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/?library=a&library=b&from=1800&to=1900", "")

		var q CountQuery
		require.NoError(t, BindQueryAndValidate(c, &q))

		assert.Equal(t, []string{"a", "b"}, q.Libraries)
		require.NotNil(t, q.From)
		assert.Equal(t, 1800, *q.From)
		assert.Equal(t, QueryPublished, q.Kind())
	})

	t.Run("non-numeric year is a binding error", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/?from=ieri&to=1900", "")

		var q CountQuery
		err := BindQueryAndValidate(c, &q)

		assert.ErrorIs(t, err, ErrBinding)
	})

	t.Run("limit bounds", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/?limit=500", "")

		var p PaginationRequest
		err := BindQueryAndValidate(c, &p)

		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "must be less than or equal to 100", ValidationErrors(err)["limit"])
	})
}

func TestBindAndValidate_ImportRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		field   string
		message string
	}{
		{name: "isbn-13 with hyphens", body: `{"isbn":"978-0-261-10238-5"}`},
		{name: "isbn-10 with X", body: `{"isbn":"0-8044-2957-X"}`},
		{
			name:    "missing",
			body:    `{}`,
			wantErr: ErrValidation,
			field:   "isbn",
			message: "this field is required",
		},
		{
			name:    "bad checksum",
			body:    `{"isbn":"9780261102386"}`,
			wantErr: ErrValidation,
			field:   "isbn",
			message: "must be a valid ISBN-10 or ISBN-13",
		},
		{name: "malformed json", body: `{"isbn":`, wantErr: ErrBinding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodPost, "/", tt.body)

			var req ImportRequest
			err := BindAndValidate(c, &req)

			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)

			if tt.field != "" {
				assert.Equal(t, tt.message, ValidationErrors(err)[tt.field])
			}
		})
	}
}

func TestRespondWithBindError(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		RespondWithBindError(c, fmt.Errorf("%w: %w", ErrValidation, domain.NewValidationError("query", "too many")))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
		assert.Equal(t, "too many", resp.Error.Details["query"])
	})

	t.Run("binding", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		RespondWithBindError(c, fmt.Errorf("%w: bad json", ErrBinding))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ErrorCodeBadRequest)
	})
}

func TestNewBookResponses(t *testing.T) {
	b, err := domain.NewBook("Dracula", "Bram Stoker", 1897, "Un conte vampiro.", []string{"horror"})
	require.NoError(t, err)

	got := NewBookResponses([]domain.Book{b})

	require.Len(t, got, 1)
	assert.Equal(t, BookResponse{
		Name:            "Dracula",
		Author:          "Bram Stoker",
		PublicationYear: 1897,
		Synopsis:        "Un conte vampiro.",
		Genres:          []string{"horror"},
	}, got[0])
}
