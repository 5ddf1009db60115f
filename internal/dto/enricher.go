package dto

import (
	"context"
	"fmt"
	"math"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Store defines the interface for fetching related entities during enrichment.
// This allows Enricher to remain testable and independent of the concrete
// store implementation.
type Store interface {
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error)
}

// Enricher denormalizes domain models for client consumption.
//
// Missing related data degrades gracefully: a dangling category or user ID
// leaves the display field empty rather than failing the response.
type Enricher struct {
	store Store
}

// NewEnricher creates a new enricher.
func NewEnricher(store Store) *Enricher {
	return &Enricher{store: store}
}

// EnrichBook builds the client view of a book: category name resolved,
// rating aggregates computed from the book's current reviews.
func (e *Enricher) EnrichBook(ctx context.Context, book *domain.Book) (*Book, error) {
	reviews, err := e.store.ReviewsByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	return e.enrichBookWith(ctx, book, reviews), nil
}

// EnrichBooks enriches a list of books for the catalog listing.
func (e *Enricher) EnrichBooks(ctx context.Context, books []*domain.Book) ([]*Book, error) {
	out := make([]*Book, 0, len(books))
	for _, book := range books {
		enriched, err := e.EnrichBook(ctx, book)
		if err != nil {
			return nil, err
		}
		out = append(out, enriched)
	}
	return out, nil
}

// EnrichBookDetail builds the detail view: aggregates, the full review list
// with reviewer names, and the viewer's own review when viewerID is set.
func (e *Enricher) EnrichBookDetail(ctx context.Context, book *domain.Book, viewerID string) (*BookDetail, error) {
	reviews, err := e.store.ReviewsByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}

	detail := &BookDetail{
		Book:    *e.enrichBookWith(ctx, book, reviews),
		Reviews: make([]Review, 0, len(reviews)),
	}

	for _, review := range reviews {
		enriched := e.enrichReview(ctx, review)
		detail.Reviews = append(detail.Reviews, enriched)
		if viewerID != "" && review.UserID == viewerID {
			own := enriched
			detail.UserReview = &own
		}
	}

	return detail, nil
}

// EnrichReview resolves the reviewer's display name.
func (e *Enricher) EnrichReview(ctx context.Context, review *domain.Review) *Review {
	enriched := e.enrichReview(ctx, review)
	return &enriched
}

// EnrichCategory attaches the current book count.
func (e *Enricher) EnrichCategory(category *domain.Category, bookCount int) *Category {
	return &Category{Category: category, BookCount: bookCount}
}

func (e *Enricher) enrichBookWith(ctx context.Context, book *domain.Book, reviews []*domain.Review) *Book {
	enriched := &Book{Book: book}
	enriched.AverageRating, enriched.TotalReviews = Aggregate(reviews)

	if book.CategoryID != "" {
		if category, err := e.store.GetCategory(ctx, book.CategoryID); err == nil {
			enriched.CategoryName = category.Name
		}
	}

	return enriched
}

func (e *Enricher) enrichReview(ctx context.Context, review *domain.Review) Review {
	enriched := Review{Review: review}
	if user, err := e.store.GetUser(ctx, review.UserID); err == nil {
		enriched.UserName = user.Name()
	}
	return enriched
}

// Aggregate computes the mean rating (rounded to two decimals) and review
// count. A book with no reviews reports a zero average, not an error.
func Aggregate(reviews []*domain.Review) (average float64, total int) {
	if len(reviews) == 0 {
		return 0, 0
	}

	sum := 0
	for _, review := range reviews {
		sum += review.Rating
	}

	average = float64(sum) / float64(len(reviews))
	return math.Round(average*100) / 100, len(reviews)
}
