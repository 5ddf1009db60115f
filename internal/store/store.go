// Package store persists catalog entities in Badger and enforces the
// relational invariants between them: review uniqueness per (book, user),
// category references, and cascade deletion of a book's reviews.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Users      *Entity[domain.User]
	Categories *Entity[domain.Category]
}

// New creates a new Store instance at the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initUsers()
	store.initCategories()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// maxTxnRetries bounds how often a write transaction is retried after a
// Badger conflict. Concurrent writers touching the same keys conflict under
// Badger's optimistic concurrency control; retrying re-runs the transaction
// body so uniqueness checks see the winner's committed state.
const maxTxnRetries = 5

// update runs fn in a write transaction, retrying on transaction conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUser fetches a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail fetches a user by email address, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, "email", email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetCategory fetches a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.Categories.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return category, err
}

// normalizeEmail lowercases and trims an email address for index lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// foldName normalizes a category name for case-insensitive uniqueness.
func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// initUsers initializes the Users entity.
// Emails are unique, case-insensitively.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail,
		)
}

// initCategories initializes the Categories entity.
// Category names are unique, case-insensitively.
func (s *Store) initCategories() {
	s.Categories = NewEntity[domain.Category](s, "category:").
		WithIndexTransform("name",
			func(c *domain.Category) []string {
				return []string{foldName(c.Name)}
			},
			foldName,
		)
}
