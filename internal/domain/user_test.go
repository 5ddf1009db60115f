package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Name(t *testing.T) {
	u := &User{Email: "reader@example.com"}
	assert.Equal(t, "reader@example.com", u.Name())

	u.LastName = "Lovelace"
	assert.Equal(t, "Lovelace", u.Name())

	u.FirstName = "Ada"
	assert.Equal(t, "Ada Lovelace", u.Name())

	u.DisplayName = "ada"
	assert.Equal(t, "ada", u.Name())
}
