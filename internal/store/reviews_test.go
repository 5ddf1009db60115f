package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

func testReview(id, bookID, userID string, rating int) *domain.Review {
	return &domain.Review{
		Stamped: domain.Stamped{ID: id},
		BookID:  bookID,
		UserID:  userID,
		Rating:  rating,
		Comment: "a fine read",
	}
}

func TestCreateReview(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")

	review := testReview("rev-001", "book-001", "user-001", 5)
	require.NoError(t, s.CreateReview(ctx, review))

	got, err := s.GetReview(ctx, "rev-001")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateReview_BookMissing(t *testing.T) {
	s := setupTestStore(t)

	err := s.CreateReview(context.Background(), testReview("rev-001", "book-missing", "user-001", 4))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCreateReview_RatingBounds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")

	assert.ErrorIs(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-a", 0)), ErrInvalidRating)
	assert.ErrorIs(t, s.CreateReview(ctx, testReview("rev-002", "book-001", "user-b", 6)), ErrInvalidRating)
	assert.NoError(t, s.CreateReview(ctx, testReview("rev-003", "book-001", "user-c", 1)))
	assert.NoError(t, s.CreateReview(ctx, testReview("rev-004", "book-001", "user-d", 5)))
}

func TestCreateReview_DuplicatePair(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")

	first := testReview("rev-001", "book-001", "user-001", 5)
	require.NoError(t, s.CreateReview(ctx, first))

	err := s.CreateReview(ctx, testReview("rev-002", "book-001", "user-001", 2))
	assert.ErrorIs(t, err, ErrReviewExists)

	// The first review is unchanged.
	got, err := s.GetReview(ctx, "rev-001")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)

	// Same user may still review a different book.
	createTestBook(t, s, "book-002", "Dune", "Frank Herbert")
	assert.NoError(t, s.CreateReview(ctx, testReview("rev-003", "book-002", "user-001", 3)))
}

func TestCreateReview_ConcurrentSamePair(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")

	const writers = 8
	results := make(chan error, writers)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.CreateReview(ctx, testReview(fmt.Sprintf("rev-%03d", i), "book-001", "user-001", 4))
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrReviewExists)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent create must win")

	reviews, err := s.ReviewsByBook(ctx, "book-001")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestGetReviewForUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	got, err := s.GetReviewForUser(ctx, "book-001", "user-001")
	require.NoError(t, err)
	assert.Equal(t, "rev-001", got.ID)

	_, err = s.GetReviewForUser(ctx, "book-001", "user-other")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestUpdateReview(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	updated, err := s.UpdateReview(ctx, "rev-001", "user-001", 2, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)
	assert.Equal(t, "changed my mind", updated.Comment)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	got, err := s.GetReview(ctx, "rev-001")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating)
}

func TestUpdateReview_NotOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	// A foreign review looks exactly like a missing one.
	_, err := s.UpdateReview(ctx, "rev-001", "user-other", 1, "drive-by")
	assert.ErrorIs(t, err, ErrReviewNotFound)

	// And the review is unchanged.
	got, err := s.GetReview(ctx, "rev-001")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "a fine read", got.Comment)
}

func TestUpdateReview_InvalidRating(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	_, err := s.UpdateReview(ctx, "rev-001", "user-001", 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestDeleteReview(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	require.NoError(t, s.DeleteReview(ctx, "rev-001", "user-001"))

	_, err := s.GetReview(ctx, "rev-001")
	assert.ErrorIs(t, err, ErrReviewNotFound)

	// Pair is free again: the user can review the book anew.
	assert.NoError(t, s.CreateReview(ctx, testReview("rev-002", "book-001", "user-001", 3)))
}

func TestDeleteReview_NotOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-001", 4)))

	err := s.DeleteReview(ctx, "rev-001", "user-other")
	assert.ErrorIs(t, err, ErrReviewNotFound)

	_, err = s.GetReview(ctx, "rev-001")
	assert.NoError(t, err, "review must be left in place")
}

func TestReviewsByBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")
	createTestBook(t, s, "book-002", "Dune", "Frank Herbert")

	require.NoError(t, s.CreateReview(ctx, testReview("rev-001", "book-001", "user-a", 5)))
	require.NoError(t, s.CreateReview(ctx, testReview("rev-002", "book-001", "user-b", 3)))
	require.NoError(t, s.CreateReview(ctx, testReview("rev-003", "book-002", "user-a", 1)))

	reviews, err := s.ReviewsByBook(ctx, "book-001")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.Equal(t, "book-001", r.BookID)
	}
}

func TestReviewsByBook_Empty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createTestBook(t, s, "book-001", "The Hobbit", "J.R.R. Tolkien")

	reviews, err := s.ReviewsByBook(ctx, "book-001")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
