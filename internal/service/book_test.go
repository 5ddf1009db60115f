package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
)

func TestCreateBook(t *testing.T) {
	env := setupTest(t)

	book, err := env.books.CreateBook(t.Context(), CreateBookRequest{
		Title:       "The Left Hand of Darkness",
		Author:      "Ursula K. Le Guin",
		Description: "A story of Gethen.",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, book.ID)
	assert.Zero(t, book.AverageRating)
	assert.Zero(t, book.TotalReviews)
}

func TestCreateBook_Validation(t *testing.T) {
	env := setupTest(t)

	_, err := env.books.CreateBook(t.Context(), CreateBookRequest{Author: "No Title"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCreateBook_UnknownCategory(t *testing.T) {
	env := setupTest(t)

	_, err := env.books.CreateBook(t.Context(), CreateBookRequest{
		Title:      "Orphan",
		Author:     "Nobody",
		CategoryID: "category-missing",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListBooks_Filtering(t *testing.T) {
	env := setupTest(t)
	scifi := createCategory(t, env, "Science Fiction")

	_, err := env.books.CreateBook(t.Context(), CreateBookRequest{
		Title: "Dune", Author: "Frank Herbert", CategoryID: scifi.ID,
	})
	require.NoError(t, err)
	createBook(t, env, "Emma", "Jane Austen")

	all, err := env.books.ListBooks(t.Context(), "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Substring match against author, case-insensitive.
	byAuthor, err := env.books.ListBooks(t.Context(), "herbert", "")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Dune", byAuthor[0].Title)
	assert.Equal(t, "Science Fiction", byAuthor[0].CategoryName)

	byCategory, err := env.books.ListBooks(t.Context(), "", scifi.ID)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	// An unknown category matches nothing.
	none, err := env.books.ListBooks(t.Context(), "", "category-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListBooks_Aggregates(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")

	alice := registerUser(t, env, "alice@example.com")
	bob := registerUser(t, env, "bob@example.com")
	carol := registerUser(t, env, "carol@example.com")
	addReview(t, env, book.ID, alice.ID, 5)
	addReview(t, env, book.ID, bob.ID, 3)
	addReview(t, env, book.ID, carol.ID, 4)

	books, err := env.books.ListBooks(t.Context(), "", "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.InDelta(t, 4.0, books[0].AverageRating, 0.001)
	assert.Equal(t, 3, books[0].TotalReviews)
}

func TestGetBook_Detail(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")
	alice := registerUser(t, env, "alice@example.com")
	bob := registerUser(t, env, "bob@example.com")
	addReview(t, env, book.ID, alice.ID, 5)
	own := addReview(t, env, book.ID, bob.ID, 2)

	detail, err := env.books.GetBook(t.Context(), book.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Reviews, 2)
	require.NotNil(t, detail.UserReview)
	assert.Equal(t, own.ID, detail.UserReview.ID)

	// Anonymous viewers see no user_review.
	anon, err := env.books.GetBook(t.Context(), book.ID, "")
	require.NoError(t, err)
	assert.Nil(t, anon.UserReview)
}

func TestGetBook_NotFound(t *testing.T) {
	env := setupTest(t)
	_, err := env.books.GetBook(t.Context(), "book-missing", "")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateBook_Partial(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")

	newTitle := "Dune Messiah"
	updated, err := env.books.UpdateBook(t.Context(), book.ID, UpdateBookRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Frank Herbert", updated.Author)
}

func TestDeleteBook_RemovesReviews(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")
	alice := registerUser(t, env, "alice@example.com")
	addReview(t, env, book.ID, alice.ID, 4)

	require.NoError(t, env.books.DeleteBook(t.Context(), book.ID))

	_, err := env.books.GetBook(t.Context(), book.ID, "")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = env.books.DeleteBook(t.Context(), book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCoverLifecycle(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")

	_, _, err := env.books.GetCover(t.Context(), book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	updated, err := env.books.UploadCover(t.Context(), book.ID, testCoverPNG(t))
	require.NoError(t, err)
	assert.NotEmpty(t, updated.CoverImage, "blurhash recorded on the book")

	data, etag, err := env.books.GetCover(t.Context(), book.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Len(t, etag, 64)
}

func TestUploadCover_InvalidImage(t *testing.T) {
	env := setupTest(t)
	book := createBook(t, env, "Dune", "Frank Herbert")

	_, err := env.books.UploadCover(t.Context(), book.ID, []byte("not an image"))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.books.UploadCover(t.Context(), "book-missing", testCoverPNG(t))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
