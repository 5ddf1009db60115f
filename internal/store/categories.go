package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// DeleteCategory removes a category by ID.
//
// Deletion policy: a category still referenced by books is rejected with
// ErrCategoryInUse rather than nulled out on the books. Admins must move or
// delete the books first. The reference check and the delete run in a single
// transaction, so a book added concurrently either commits before the delete
// and blocks it, or conflicts and retries against the deleted category.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte("category:" + id)
	refPrefix := []byte(bookByCategoryPrefix + id + ":")

	return s.update(func(txn *badger.Txn) error {
		var category domain.Category
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &category)
		}); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = refPrefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		it.Seek(refPrefix)
		inUse := it.ValidForPrefix(refPrefix)
		it.Close()
		if inUse {
			return ErrCategoryInUse
		}

		if err := s.Categories.deleteIndexes(txn, &category); err != nil {
			return err
		}

		return txn.Delete(key)
	})
}
