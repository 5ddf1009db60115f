package dto

import "github.com/shelfmarkapp/shelfmark-server/internal/domain"

// User is the client-facing representation of an account.
// The password hash never leaves the server.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
}

// NewUser builds the client view of a user.
func NewUser(u *domain.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.Name(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsAdmin:     u.IsAdmin,
	}
}
