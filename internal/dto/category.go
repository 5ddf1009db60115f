package dto

import "github.com/shelfmarkapp/shelfmark-server/internal/domain"

// Category is the client-facing representation of a category,
// with its current book count denormalized.
type Category struct {
	*domain.Category

	BookCount int `json:"book_count"`
}
