// Package mocks provides testify mocks for the ports interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/library-catalog/internal/domain"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

var (
	_ ports.LibraryRepository = (*MockLibraryRepository)(nil)
	_ ports.BookLookup        = (*MockBookLookup)(nil)
	_ ports.Cache             = (*MockCache)(nil)
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockLibraryRepository mocks ports.LibraryRepository.
type MockLibraryRepository struct {
	mock.Mock
}

// NewMockLibraryRepository creates a mock whose expectations are asserted at test cleanup.
func NewMockLibraryRepository(t cleanupT) *MockLibraryRepository {
	m := &MockLibraryRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockLibraryRepository) Names(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	names, _ := args.Get(0).([]string)

	return names, args.Error(1)
}

func (m *MockLibraryRepository) Get(ctx context.Context, name string) (*domain.Library, error) {
	args := m.Called(ctx, name)

	lib, _ := args.Get(0).(*domain.Library)

	return lib, args.Error(1)
}

func (m *MockLibraryRepository) Create(ctx context.Context, name string, books []domain.Book) error {
	return m.Called(ctx, name, books).Error(0)
}

func (m *MockLibraryRepository) AddBook(ctx context.Context, name string, book domain.Book) error {
	return m.Called(ctx, name, book).Error(0)
}

// MockBookLookup mocks ports.BookLookup.
type MockBookLookup struct {
	mock.Mock
}

// NewMockBookLookup creates a mock whose expectations are asserted at test cleanup.
func NewMockBookLookup(t cleanupT) *MockBookLookup {
	m := &MockBookLookup{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockBookLookup) LookupISBN(ctx context.Context, isbn string) (domain.Book, error) {
	args := m.Called(ctx, isbn)

	book, _ := args.Get(0).(domain.Book)

	return book, args.Error(1)
}

// MockCache mocks ports.Cache.
type MockCache struct {
	mock.Mock
}

// NewMockCache creates a mock whose expectations are asserted at test cleanup.
func NewMockCache(t cleanupT) *MockCache {
	m := &MockCache{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	value, _ := args.Get(0).([]byte)

	return value, args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
