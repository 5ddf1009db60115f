package domain

// Rating bounds. Ratings are whole stars from 1 to 5 inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a single user's review of a book.
// At most one review exists per (BookID, UserID) pair; the store enforces
// this inside its write transaction.
type Review struct {
	Stamped
	BookID  string `json:"book_id"`
	UserID  string `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// ValidRating reports whether rating is within the allowed 1-5 range.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
