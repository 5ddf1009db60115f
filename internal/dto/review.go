package dto

import "github.com/shelfmarkapp/shelfmark-server/internal/domain"

// Review is the client-facing representation of a review.
type Review struct {
	*domain.Review

	// Reviewer display name, denormalized for immediate rendering.
	UserName string `json:"user_name,omitempty"`
}
