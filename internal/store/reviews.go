package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Key prefixes for review storage.
const (
	reviewPrefix       = "review:"
	reviewPairPrefix   = "idx:review:pair:" // bookID:userID -> reviewID (unique)
	reviewByBookPrefix = "idx:review:book:" // bookID:reviewID -> empty
)

func reviewPairKey(bookID, userID string) []byte {
	return []byte(reviewPairPrefix + bookID + ":" + userID)
}

func reviewBookKey(bookID, reviewID string) []byte {
	return []byte(reviewByBookPrefix + bookID + ":" + reviewID)
}

// CreateReview persists a new review. Timestamps are populated here.
//
// The (book, user) uniqueness constraint is enforced inside the write
// transaction: the pair index is checked and written atomically, so of two
// concurrent creates for the same pair at most one commits. The loser either
// hits the committed pair key or a transaction conflict, which is retried
// and then hits the pair key.
//
// Returns ErrInvalidRating, ErrBookNotFound, or ErrReviewExists.
func (s *Store) CreateReview(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !domain.ValidRating(review.Rating) {
		return ErrInvalidRating
	}

	review.InitTimestamps()

	key := []byte(reviewPrefix + review.ID)
	pairKey := reviewPairKey(review.BookID, review.UserID)

	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	return s.update(func(txn *badger.Txn) error {
		// Referential integrity: the book must exist.
		if _, err := txn.Get([]byte(bookPrefix + review.BookID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBookNotFound
			}
			return fmt.Errorf("check book: %w", err)
		}

		// One review per (book, user).
		if _, err := txn.Get(pairKey); err == nil {
			return ErrReviewExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check review pair: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(pairKey, []byte(review.ID)); err != nil {
			return err
		}
		return txn.Set(reviewBookKey(review.BookID, review.ID), []byte{})
	})
}

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var review domain.Review
	if err := s.get([]byte(reviewPrefix+id), &review); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &review, nil
}

// GetReviewForUser retrieves the review a user wrote for a book, if any.
func (s *Store) GetReviewForUser(ctx context.Context, bookID, userID string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reviewID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reviewPairKey(bookID, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			reviewID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetReview(ctx, reviewID)
}

// UpdateReview updates the rating and comment of a review owned by userID,
// refreshing its UpdatedAt timestamp. BookID and UserID are immutable.
//
// The lookup is scoped to the owner: a review owned by another user is
// indistinguishable from a missing one, so existence is never leaked.
func (s *Store) UpdateReview(ctx context.Context, reviewID, userID string, rating int, comment string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !domain.ValidRating(rating) {
		return nil, ErrInvalidRating
	}

	key := []byte(reviewPrefix + reviewID)
	var review domain.Review

	err := s.update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &review)
		}); err != nil {
			return err
		}

		if review.UserID != userID {
			return ErrReviewNotFound
		}

		review.Rating = rating
		review.Comment = comment
		review.Touch()

		data, err := json.Marshal(&review)
		if err != nil {
			return fmt.Errorf("marshal review: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}

	return &review, nil
}

// DeleteReview removes a review owned by userID along with its indexes.
// Ownership is scoped the same way as UpdateReview.
func (s *Store) DeleteReview(ctx context.Context, reviewID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(reviewPrefix + reviewID)

	return s.update(func(txn *badger.Txn) error {
		var review domain.Review
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &review)
		}); err != nil {
			return err
		}

		if review.UserID != userID {
			return ErrReviewNotFound
		}

		return deleteReviewKeysTxn(txn, &review)
	})
}

// ReviewsByBook returns all reviews for a book, in key order.
// Runs in a single read transaction so aggregates computed from the result
// see a consistent snapshot.
func (s *Store) ReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reviews []*domain.Review
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		reviews, err = reviewsForBookTxn(txn, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return reviews, nil
}

// reviewsForBookTxn loads all reviews for a book within an open transaction.
func reviewsForBookTxn(txn *badger.Txn, bookID string) ([]*domain.Review, error) {
	prefix := []byte(reviewByBookPrefix + bookID + ":")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	// Collect IDs first and close the iterator before any further txn
	// operations; write transactions disallow mutation while iterating.
	it := txn.NewIterator(opts)
	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		ids = append(ids, key[len(prefix):])
	}
	it.Close()

	reviews := make([]*domain.Review, 0, len(ids))
	for _, id := range ids {
		item, err := txn.Get([]byte(reviewPrefix + id))
		if err != nil {
			return nil, fmt.Errorf("get review %s: %w", id, err)
		}
		var review domain.Review
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &review)
		}); err != nil {
			return nil, err
		}
		reviews = append(reviews, &review)
	}

	return reviews, nil
}

// deleteReviewKeysTxn removes a review's primary key and both indexes.
func deleteReviewKeysTxn(txn *badger.Txn, review *domain.Review) error {
	if err := txn.Delete([]byte(reviewPrefix + review.ID)); err != nil {
		return err
	}
	if err := txn.Delete(reviewPairKey(review.BookID, review.UserID)); err != nil {
		return err
	}
	return txn.Delete(reviewBookKey(review.BookID, review.ID))
}
