package service

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/dto"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// testEnv wires every service against a temporary database.
type testEnv struct {
	store      *store.Store
	auth       *AuthService
	sessions   *SessionService
	books      *BookService
	reviews    *ReviewService
	categories *CategoryService
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		15*time.Minute,
		30*24*time.Hour,
	)
	require.NoError(t, err)

	coverStorage, err := covers.NewStorage(tmpDir)
	require.NoError(t, err)

	enricher := dto.NewEnricher(s)
	sessionService := NewSessionService(s, tokenService, nil)

	return &testEnv{
		store:      s,
		auth:       NewAuthService(s, tokenService, sessionService, nil),
		sessions:   sessionService,
		books:      NewBookService(s, enricher, coverStorage, nil),
		reviews:    NewReviewService(s, enricher, nil),
		categories: NewCategoryService(s, enricher, nil),
	}
}

// registerUser creates an account and returns the user.
func registerUser(t *testing.T, env *testEnv, email string) *domain.User {
	t.Helper()
	resp, err := env.auth.Register(t.Context(), RegisterRequest{
		Email:       email,
		Password:    "a long enough password",
		DisplayName: email,
	})
	require.NoError(t, err)
	return resp.User
}

func createBook(t *testing.T, env *testEnv, title, author string) *dto.Book {
	t.Helper()
	book, err := env.books.CreateBook(t.Context(), CreateBookRequest{
		Title:  title,
		Author: author,
	})
	require.NoError(t, err)
	return book
}

func createCategory(t *testing.T, env *testEnv, name string) *domain.Category {
	t.Helper()
	category, err := env.categories.CreateCategory(t.Context(), CategoryRequest{Name: name})
	require.NoError(t, err)
	return category
}

func addReview(t *testing.T, env *testEnv, bookID, userID string, rating int) *dto.Review {
	t.Helper()
	review, err := env.reviews.AddReview(t.Context(), bookID, userID, AddReviewRequest{
		Rating:  rating,
		Comment: "test comment",
	})
	require.NoError(t, err)
	return review
}

// testCoverPNG encodes a small PNG for cover upload tests.
func testCoverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 36))
	for y := range 36 {
		for x := range 24 {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 7), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
