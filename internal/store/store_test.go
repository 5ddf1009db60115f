package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// setupTestStore creates a Store backed by a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// createTestBook inserts a book with the given id and returns it.
func createTestBook(t *testing.T, s *Store, id, title, author string) *domain.Book {
	t.Helper()

	book := &domain.Book{
		Stamped: domain.Stamped{ID: id},
		Title:   title,
		Author:  author,
	}
	require.NoError(t, s.CreateBook(context.Background(), book))
	return book
}

// createTestCategory inserts a category with the given id and name.
func createTestCategory(t *testing.T, s *Store, id, name string) *domain.Category {
	t.Helper()

	cat := &domain.Category{
		Stamped: domain.Stamped{ID: id},
		Name:    name,
	}
	cat.InitTimestamps()
	require.NoError(t, s.Categories.Create(context.Background(), id, cat))
	return cat
}
