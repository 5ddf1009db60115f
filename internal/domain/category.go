package domain

// Category is an administrative grouping for books.
// Names are unique, case-insensitively. Books reference categories but do not
// own them; a category that is still referenced cannot be deleted.
type Category struct {
	Stamped
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
