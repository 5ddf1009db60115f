package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Key prefixes for book storage.
const (
	bookPrefix           = "book:"
	bookByCategoryPrefix = "idx:book:category:" // categoryID:bookID -> empty
)

// BookFilter selects books by free-text query and category.
// Query matches title or author, case-insensitively, as a substring.
// A whitespace-only query is treated as empty and matches everything.
type BookFilter struct {
	Query      string
	CategoryID string
}

// Matches reports whether the book satisfies the filter.
func (f BookFilter) Matches(b *domain.Book) bool {
	if f.CategoryID != "" && b.CategoryID != f.CategoryID {
		return false
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}

	return strings.Contains(strings.ToLower(b.Title), query) ||
		strings.Contains(strings.ToLower(b.Author), query)
}

// CreateBook creates a new book. Timestamps are populated here.
// Returns ErrCategoryNotFound if the book references a missing category.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	book.InitTimestamps()

	key := []byte(bookPrefix + book.ID)

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrBookExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check book exists: %w", err)
		}

		if err := checkCategoryRef(txn, book.CategoryID); err != nil {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		if book.CategoryID != "" {
			catKey := []byte(bookByCategoryPrefix + book.CategoryID + ":" + book.ID)
			if err := txn.Set(catKey, []byte{}); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book domain.Book
	if err := s.get([]byte(bookPrefix+id), &book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	return &book, nil
}

// UpdateBook replaces an existing book and refreshes its UpdatedAt timestamp.
// The category index is rewritten if the category reference changed.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	book.Touch()

	key := []byte(bookPrefix + book.ID)

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		var old domain.Book
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		// CreatedAt is immutable.
		book.CreatedAt = old.CreatedAt

		if err := checkCategoryRef(txn, book.CategoryID); err != nil {
			return err
		}

		if old.CategoryID != book.CategoryID {
			if old.CategoryID != "" {
				oldKey := []byte(bookByCategoryPrefix + old.CategoryID + ":" + book.ID)
				if err := txn.Delete(oldKey); err != nil {
					return err
				}
			}
			if book.CategoryID != "" {
				newKey := []byte(bookByCategoryPrefix + book.CategoryID + ":" + book.ID)
				if err := txn.Set(newKey, []byte{}); err != nil {
					return err
				}
			}
		}

		data, err = json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeleteBook removes a book and cascades to all of its reviews.
// The book, its category index entry, and every review (with indexes) are
// removed in a single transaction.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(bookPrefix + id)

	return s.update(func(txn *badger.Txn) error {
		var book domain.Book
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &book)
		}); err != nil {
			return err
		}

		// Cascade: delete all reviews for this book.
		reviews, err := reviewsForBookTxn(txn, id)
		if err != nil {
			return err
		}
		for _, review := range reviews {
			if err := deleteReviewKeysTxn(txn, review); err != nil {
				return err
			}
		}

		if book.CategoryID != "" {
			catKey := []byte(bookByCategoryPrefix + book.CategoryID + ":" + id)
			if err := txn.Delete(catKey); err != nil {
				return err
			}
		}

		return txn.Delete(key)
	})
}

// ListBooks returns all books matching the filter, in key order.
// The scan runs in a single read transaction, so results are a consistent
// snapshot even under concurrent writes.
func (s *Store) ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	books := make([]*domain.Book, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return err
			}

			if filter.Matches(&book) {
				books = append(books, &book)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return books, nil
}

// CountBooksInCategory returns how many books reference the given category.
func (s *Store) CountBooksInCategory(ctx context.Context, categoryID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte(bookByCategoryPrefix + categoryID + ":")
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// checkCategoryRef verifies that a referenced category exists.
// An empty categoryID is a valid "no category" reference.
func checkCategoryRef(txn *badger.Txn, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	if _, err := txn.Get([]byte("category:" + categoryID)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}
