package api

import (
	"bytes"
	"encoding/json/v2"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	"github.com/shelfmarkapp/shelfmark-server/internal/backup"
	"github.com/shelfmarkapp/shelfmark-server/internal/dto"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func setupServer(t *testing.T) *Server {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(fmt.Sprintf("%x", authKey), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	coverStorage, err := covers.NewStorage(tmpDir)
	require.NoError(t, err)

	enricher := dto.NewEnricher(s)
	sessionService := service.NewSessionService(s, tokenService, nil)
	authService := service.NewAuthService(s, tokenService, sessionService, nil)
	bookService := service.NewBookService(s, enricher, coverStorage, nil)
	reviewService := service.NewReviewService(s, enricher, nil)
	categoryService := service.NewCategoryService(s, enricher, nil)

	backupLogger := slog.New(slog.DiscardHandler)
	exporter := backup.NewExporter(s, coverStorage, "test")
	backupService := backup.NewService(exporter, filepath.Join(tmpDir, "backups"), backupLogger)
	restoreService := backup.NewRestoreService(s, coverStorage, backupLogger)

	return NewServer(s, authService, bookService, reviewService, categoryService, backupService, restoreService, backupLogger)
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// register creates an account via the API and returns its access token.
// The first account on the test server is the admin.
func register(t *testing.T, srv *Server, email string) (token, userID string) {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        email,
		"password":     "a long enough password",
		"display_name": email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decode(t, w)
	data := env.Data.(map[string]any)
	return data["access_token"].(string), data["user"].(map[string]any)["id"].(string)
}

// seedBook creates a book through the admin API.
func seedBook(t *testing.T, srv *Server, adminToken, title, author, categoryID string) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/v1/admin/books/", adminToken, map[string]string{
		"title":       title,
		"author":      author,
		"category_id": categoryID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w).Data.(map[string]any)["id"].(string)
}

func testCoverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 24))
	for y := range 24 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: uint8(y * 9), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestAuthFlow(t *testing.T) {
	srv := setupServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "flow@example.com",
		"password": "a long enough password",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w).Data.(map[string]any)
	refresh := data["refresh_token"].(string)

	// The password hash never appears in responses.
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "flow@example.com",
		"password": "a long enough password",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "flow@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Rotation spent the old token.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCurrentUser(t *testing.T) {
	srv := setupServer(t)
	token, userID := register(t, srv, "me@example.com")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, decode(t, w).Data.(map[string]any)["id"])

	w = doJSON(t, srv, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListBooks_PublicWithFilters(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/admin/categories/", adminToken, map[string]string{"name": "Science Fiction"})
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := decode(t, w).Data.(map[string]any)["id"].(string)

	seedBook(t, srv, adminToken, "Dune", "Frank Herbert", categoryID)
	seedBook(t, srv, adminToken, "Emma", "Jane Austen", "")

	// Anonymous listing works.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data.([]any), 2)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/?query=herbert", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	books := decode(t, w).Data.([]any)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].(map[string]any)["title"])

	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/?category="+categoryID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data.([]any), 1)
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")
	aliceToken, _ := register(t, srv, "alice@example.com")
	bobToken, _ := register(t, srv, "bob@example.com")
	bookID := seedBook(t, srv, adminToken, "Dune", "Frank Herbert", "")

	// Anonymous review creation is rejected.
	w := doJSON(t, srv, http.MethodPost, "/api/v1/books/"+bookID+"/reviews", "", map[string]any{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/books/"+bookID+"/reviews", aliceToken, map[string]any{
		"rating":  5,
		"comment": "Magnificent.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviewID := decode(t, w).Data.(map[string]any)["id"].(string)

	// Duplicate answers 409 and points at the existing review.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/books/"+bookID+"/reviews", aliceToken, map[string]any{"rating": 1})
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, reviewID, env.Error.Details["review_id"])

	// Out-of-range rating.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/books/"+bookID+"/reviews", bobToken, map[string]any{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bob editing Alice's review sees 404, not 403.
	w = doJSON(t, srv, http.MethodPatch, "/api/v1/reviews/"+reviewID, bobToken, map[string]any{"rating": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPatch, "/api/v1/reviews/"+reviewID, aliceToken, map[string]any{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode(t, w).Data.(map[string]any)["rating"])

	// Deleting someone else's review also looks missing.
	w = doJSON(t, srv, http.MethodDelete, "/api/v1/reviews/"+reviewID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/reviews/"+reviewID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBookDetail_UserReview(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")
	aliceToken, _ := register(t, srv, "alice@example.com")
	bookID := seedBook(t, srv, adminToken, "Dune", "Frank Herbert", "")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/books/"+bookID+"/reviews", aliceToken, map[string]any{"rating": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+bookID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	require.NotNil(t, data["user_review"])
	assert.EqualValues(t, 1, data["total_reviews"])
	assert.EqualValues(t, 3, data["average_rating"])

	// Anonymous view of the same book has no user_review.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+bookID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w).Data.(map[string]any)["user_review"])
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	srv := setupServer(t)
	register(t, srv, "admin@example.com") // first user becomes admin
	userToken, _ := register(t, srv, "user@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/admin/books/", userToken, map[string]string{
		"title": "Nope", "author": "Nobody",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/admin/books/", "", map[string]string{
		"title": "Nope", "author": "Nobody",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCategoryDelete_Conflict(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/admin/categories/", adminToken, map[string]string{"name": "Fantasy"})
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := decode(t, w).Data.(map[string]any)["id"].(string)

	bookID := seedBook(t, srv, adminToken, "The Hobbit", "J.R.R. Tolkien", categoryID)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/admin/categories/"+categoryID, adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/admin/books/"+bookID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/admin/categories/"+categoryID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCoverEndpoints(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")
	bookID := seedBook(t, srv, adminToken, "Dune", "Frank Herbert", "")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/books/"+bookID+"/cover", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/books/"+bookID+"/cover", bytes.NewReader(testCoverPNG(t)))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec).Data.(map[string]any)["cover_image"])

	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+bookID+"/cover", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "image/"))

	// Conditional request hits the ETag.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/books/"+bookID+"/cover", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestBackupEndpoints(t *testing.T) {
	srv := setupServer(t)
	adminToken, _ := register(t, srv, "admin@example.com")

	bookID := seedBook(t, srv, adminToken, "Dune", "Frank Herbert", "")

	// Nothing yet.
	w := doJSON(t, srv, http.MethodGet, "/api/v1/admin/backups/", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Create a backup.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/admin/backups/", adminToken, map[string]bool{
		"include_covers": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w).Data.(map[string]any)
	backupID := created["id"].(string)
	require.NotEmpty(t, backupID)
	assert.Equal(t, float64(1), created["counts"].(map[string]any)["books"])

	// It shows up in the listing.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/admin/backups/", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	backups := decode(t, w).Data.([]any)
	require.Len(t, backups, 1)

	// Download streams a zip.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/admin/backups/"+backupID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	// Restoring over live data skips everything.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/admin/backups/"+backupID+"/restore", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restored := decode(t, w).Data.(map[string]any)
	assert.Equal(t, float64(1), restored["skipped"].(map[string]any)["books"])

	// Book is still there.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+bookID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Delete the archive.
	w = doJSON(t, srv, http.MethodDelete, "/api/v1/admin/backups/"+backupID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/admin/backups/"+backupID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackupEndpoints_AdminOnly(t *testing.T) {
	srv := setupServer(t)
	register(t, srv, "admin@example.com")
	userToken, _ := register(t, srv, "user@example.com")

	w := doJSON(t, srv, http.MethodGet, "/api/v1/admin/backups/", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/admin/backups/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
