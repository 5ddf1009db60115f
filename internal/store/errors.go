package store

import "errors"

// Store-level errors. Services translate these into the domain error taxonomy.
var (
	// ErrBookNotFound is returned when a book cannot be found by ID.
	ErrBookNotFound = errors.New("book not found")
	// ErrBookExists is returned when attempting to create a book with an existing ID.
	ErrBookExists = errors.New("book already exists")
	// ErrReviewNotFound is returned when a review is missing or not owned by the caller.
	ErrReviewNotFound = errors.New("review not found")
	// ErrReviewExists is returned when a (book, user) pair already has a review.
	ErrReviewExists = errors.New("review already exists for this book and user")
	// ErrInvalidRating is returned when a rating is outside the 1-5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrCategoryNotFound is returned when a referenced category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryInUse is returned when deleting a category still referenced by books.
	ErrCategoryInUse = errors.New("category is referenced by existing books")
	// ErrSessionNotFound is returned when a session cannot be found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when an email address is already registered.
	ErrUserExists = errors.New("user already exists")
)
