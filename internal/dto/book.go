// Package dto provides Data Transfer Objects for API responses.
//
// DTOs contain denormalized fields for immediate client rendering while
// preserving normalized IDs for relationships: a book carries its category
// name alongside the category ID, and a review carries its author's display
// name.
package dto

import "github.com/shelfmarkapp/shelfmark-server/internal/domain"

// Book is the client-facing representation of a catalog entry.
//
// Rating aggregates are computed from the book's reviews at read time and
// never persisted, so a response always reflects the current review set.
type Book struct {
	*domain.Book // Embeds all database fields

	// Denormalized fields populated by Enricher before sending to clients
	CategoryName  string  `json:"category_name,omitempty"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}

// BookDetail extends Book with the full review listing.
// UserReview is the authenticated viewer's own review, when one exists;
// anonymous requests always see it as null.
type BookDetail struct {
	Book

	Reviews    []Review `json:"reviews"`
	UserReview *Review  `json:"user_review,omitempty"`
}
