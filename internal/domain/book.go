package domain

// Book represents a catalog entry.
// AverageRating and TotalReviews are derived from the book's reviews on read;
// they are never persisted with the book itself.
type Book struct {
	Stamped
	Title       string `json:"title"`
	Author      string `json:"author"`
	CategoryID  string `json:"category_id,omitempty"`
	Description string `json:"description,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"` // BlurHash placeholder, set when a cover is stored
}

// HasCover returns true if a cover image has been stored for the book.
func (b *Book) HasCover() bool {
	return b.CoverImage != ""
}
