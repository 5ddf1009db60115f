package backup

import (
	"archive/zip"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// RestoreResult summarizes a restore operation. Entities whose IDs already
// exist are left untouched and counted as skipped.
type RestoreResult struct {
	Restored EntityCounts `json:"restored"`
	Skipped  EntityCounts `json:"skipped"`
}

// RestoreService merges backup archives into the live database.
type RestoreService struct {
	store  *store.Store
	covers *covers.Storage
	logger *slog.Logger
}

// NewRestoreService creates a RestoreService.
func NewRestoreService(s *store.Store, coverStorage *covers.Storage, logger *slog.Logger) *RestoreService {
	return &RestoreService{store: s, covers: coverStorage, logger: logger}
}

// Restore reads the archive at archivePath and merges its contents.
// Existing entities always win; a restore never overwrites live data.
func (r *RestoreService) Restore(ctx context.Context, archivePath string) (*RestoreResult, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := r.checkManifest(&zr.Reader); err != nil {
		return nil, err
	}

	result := &RestoreResult{}

	// Restore in dependency order: users and categories before books,
	// books before reviews and covers.
	if err := r.restoreUsers(ctx, &zr.Reader, result); err != nil {
		return nil, fmt.Errorf("restore users: %w", err)
	}
	if err := r.restoreCategories(ctx, &zr.Reader, result); err != nil {
		return nil, fmt.Errorf("restore categories: %w", err)
	}
	if err := r.restoreBooks(ctx, &zr.Reader, result); err != nil {
		return nil, fmt.Errorf("restore books: %w", err)
	}
	if err := r.restoreReviews(ctx, &zr.Reader, result); err != nil {
		return nil, fmt.Errorf("restore reviews: %w", err)
	}
	if err := r.restoreCovers(&zr.Reader, result); err != nil {
		return nil, fmt.Errorf("restore covers: %w", err)
	}

	r.logger.Info("restore complete",
		"archive", archivePath,
		"restored_books", result.Restored.Books,
		"restored_reviews", result.Restored.Reviews,
		"skipped_books", result.Skipped.Books)

	return result, nil
}

// checkManifest verifies the archive carries a compatible manifest.
func (r *RestoreService) checkManifest(zr *zip.Reader) error {
	var manifest Manifest
	if err := readEntry(zr, "manifest.json", &manifest); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBackup, err)
	}

	// Same major version is compatible.
	if major, _, _ := strings.Cut(manifest.Version, "."); major != "1" {
		return fmt.Errorf("%w: unsupported format version %s", ErrInvalidBackup, manifest.Version)
	}
	return nil
}

func (r *RestoreService) restoreUsers(ctx context.Context, zr *zip.Reader, result *RestoreResult) error {
	var users []*domain.User
	if err := readEntry(zr, "entities/users.json", &users); err != nil {
		return err
	}

	for _, user := range users {
		err := r.store.Users.Create(ctx, user.ID, user)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			result.Skipped.Users++
		case err != nil:
			return err
		default:
			result.Restored.Users++
		}
	}
	return nil
}

func (r *RestoreService) restoreCategories(ctx context.Context, zr *zip.Reader, result *RestoreResult) error {
	var categories []*domain.Category
	if err := readEntry(zr, "entities/categories.json", &categories); err != nil {
		return err
	}

	for _, category := range categories {
		err := r.store.Categories.Create(ctx, category.ID, category)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			result.Skipped.Categories++
		case err != nil:
			return err
		default:
			result.Restored.Categories++
		}
	}
	return nil
}

func (r *RestoreService) restoreBooks(ctx context.Context, zr *zip.Reader, result *RestoreResult) error {
	var books []*domain.Book
	if err := readEntry(zr, "entities/books.json", &books); err != nil {
		return err
	}

	for _, book := range books {
		err := r.store.CreateBook(ctx, book)
		switch {
		case errors.Is(err, store.ErrBookExists):
			result.Skipped.Books++
		case errors.Is(err, store.ErrCategoryNotFound):
			// Category was skipped or absent; keep the book without it.
			book.CategoryID = ""
			if err := r.store.CreateBook(ctx, book); err != nil {
				return err
			}
			result.Restored.Books++
		case err != nil:
			return err
		default:
			result.Restored.Books++
		}
	}
	return nil
}

func (r *RestoreService) restoreReviews(ctx context.Context, zr *zip.Reader, result *RestoreResult) error {
	var reviews []*domain.Review
	if err := readEntry(zr, "entities/reviews.json", &reviews); err != nil {
		return err
	}

	for _, review := range reviews {
		err := r.store.CreateReview(ctx, review)
		switch {
		// A review for the same (book, user) pair already exists, or its
		// user or book was never restored; live data wins either way.
		case errors.Is(err, store.ErrReviewExists), errors.Is(err, store.ErrBookNotFound):
			result.Skipped.Reviews++
		case err != nil:
			return err
		default:
			result.Restored.Reviews++
		}
	}
	return nil
}

func (r *RestoreService) restoreCovers(zr *zip.Reader, result *RestoreResult) error {
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "covers/") || f.FileInfo().IsDir() {
			continue
		}

		bookID := strings.TrimSuffix(path.Base(f.Name), ".jpg")
		if r.covers.Exists(bookID) {
			result.Skipped.Covers++
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}

		if _, err := r.covers.Save(bookID, data); err != nil {
			r.logger.Warn("skipping unreadable cover", "book_id", bookID, "error", err)
			continue
		}
		result.Restored.Covers++
	}
	return nil
}

// readEntry unmarshals the named archive entry into v.
func readEntry(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("missing entry %s: %w", name, err)
	}
	defer f.Close()
	return json.UnmarshalRead(f, v)
}
