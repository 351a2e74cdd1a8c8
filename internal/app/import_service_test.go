package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/mocks"
)

const draculaISBN = "9780141439846"

func TestImportService_ImportByISBN(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		library   string
		isbn      string
		setup     func(t *testing.T, lookup *mocks.MockBookLookup, repo *mocks.MockLibraryRepository, cache *mocks.MockCache)
		errCheck  func(error) bool
		wantStep  ExecutionStep
		wantTitle string
	}{
		{
			name:    "success",
			enabled: true,
			library: "centrale",
			isbn:    "978-0-14-143984-6",
			setup: func(t *testing.T, lookup *mocks.MockBookLookup, repo *mocks.MockLibraryRepository, cache *mocks.MockCache) {
				b := book(t, "Dracula", "Bram Stoker", 1897, "horror")
				lookup.On("LookupISBN", mock.Anything, draculaISBN).Return(b, nil)
				repo.On("AddBook", mock.Anything, "centrale", b).Return(nil)
				cache.On("Clear", mock.Anything).Return(nil)
			},
			wantTitle: "Dracula",
		},
		{
			name:     "disabled",
			enabled:  false,
			library:  "centrale",
			isbn:     draculaISBN,
			setup:    func(*testing.T, *mocks.MockBookLookup, *mocks.MockLibraryRepository, *mocks.MockCache) {},
			errCheck: domain.IsForbidden,
			wantStep: StepValidate,
		},
		{
			name:     "empty library",
			enabled:  true,
			library:  "",
			isbn:     draculaISBN,
			setup:    func(*testing.T, *mocks.MockBookLookup, *mocks.MockLibraryRepository, *mocks.MockCache) {},
			errCheck: domain.IsValidation,
			wantStep: StepValidate,
		},
		{
			name:     "bad isbn",
			enabled:  true,
			library:  "centrale",
			isbn:     "12345",
			setup:    func(*testing.T, *mocks.MockBookLookup, *mocks.MockLibraryRepository, *mocks.MockCache) {},
			errCheck: domain.IsValidation,
			wantStep: StepValidate,
		},
		{
			name:    "unknown isbn",
			enabled: true,
			library: "centrale",
			isbn:    draculaISBN,
			setup: func(_ *testing.T, lookup *mocks.MockBookLookup, _ *mocks.MockLibraryRepository, _ *mocks.MockCache) {
				lookup.On("LookupISBN", mock.Anything, draculaISBN).
					Return(domain.Book{}, domain.NewNotFoundError("isbn", draculaISBN))
			},
			errCheck: domain.IsNotFound,
			wantStep: StepPerform,
		},
		{
			name:    "invalid upstream record",
			enabled: true,
			library: "centrale",
			isbn:    draculaISBN,
			setup: func(_ *testing.T, lookup *mocks.MockBookLookup, _ *mocks.MockLibraryRepository, _ *mocks.MockCache) {
				lookup.On("LookupISBN", mock.Anything, draculaISBN).Return(domain.Book{}, nil)
			},
			errCheck: domain.IsValidation,
			wantStep: StepVerify,
		},
		{
			name:    "duplicate book",
			enabled: true,
			library: "centrale",
			isbn:    draculaISBN,
			setup: func(t *testing.T, lookup *mocks.MockBookLookup, repo *mocks.MockLibraryRepository, _ *mocks.MockCache) {
				b := book(t, "Dracula", "Bram Stoker", 1897)
				lookup.On("LookupISBN", mock.Anything, draculaISBN).Return(b, nil)
				repo.On("AddBook", mock.Anything, "centrale", b).
					Return(domain.NewConflictError("book", "already in library"))
			},
			errCheck: domain.IsConflict,
			wantStep: StepArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := mocks.NewMockBookLookup(t)
			repo := mocks.NewMockLibraryRepository(t)
			cache := mocks.NewMockCache(t)
			tt.setup(t, lookup, repo, cache)

			catalog := NewCatalogService(CatalogServiceConfig{Repository: repo, Cache: cache, Logger: discardLogger()})
			svc := NewImportService(ImportServiceConfig{
				Lookup:     lookup,
				Repository: repo,
				Catalog:    catalog,
				Enabled:    tt.enabled,
				Logger:     discardLogger(),
			})

			got, err := svc.ImportByISBN(context.Background(), tt.library, tt.isbn)

			if tt.errCheck != nil {
				require.Error(t, err)
				assert.True(t, tt.errCheck(err), "unexpected error: %v", err)

				step, ok := GetExecutionStep(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantStep, step)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Name())
		})
	}
}

func TestExecute_SkipsNilSteps(t *testing.T) {
	op := Operation[int, int, int, string]{
		Name:    "noop",
		Perform: func(_ context.Context, in int) (int, error) { return in * 2, nil },
	}

	out, err := Execute(context.Background(), NewExecutor(discardLogger()), op, 21)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	archived := false
	boom := errors.New("lookup timed out")

	op := Operation[string, string, string, string]{
		Name:    "import_book",
		Perform: func(context.Context, string) (string, error) { return "", boom },
		Archive: func(context.Context, string, string) error {
			archived = true

			return nil
		},
	}

	_, err := Execute(context.Background(), NewExecutor(nil), op, "x")

	require.ErrorIs(t, err, boom)
	assert.False(t, archived)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, StepPerform, execErr.Step)
	assert.Equal(t, "import_book: perform failed: lookup timed out", execErr.Error())
}

func TestExecute_PassesValuesAlong(t *testing.T) {
	op := Operation[int, int, int, string]{
		Name:     "chain",
		Validate: func(_ context.Context, in int) error { return nil },
		Perform:  func(_ context.Context, in int) (int, error) { return in + 1, nil },
		Verify:   func(_ context.Context, _ int, p int) (int, error) { return p * 10, nil },
		Respond: func(_ context.Context, in int, v int) (string, error) {
			if v != (in+1)*10 {
				return "", errors.New("wrong value")
			}

			return "ok", nil
		},
	}

	out, err := Execute(context.Background(), NewExecutor(discardLogger()), op, 4)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGetExecutionStep_NotExecutionError(t *testing.T) {
	_, ok := GetExecutionStep(errors.New("plain"))
	assert.False(t, ok)
}
