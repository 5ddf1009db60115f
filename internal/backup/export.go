package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// Exporter creates backup archives.
type Exporter struct {
	store   *store.Store
	covers  *covers.Storage
	version string
}

// NewExporter creates an Exporter.
func NewExporter(s *store.Store, coverStorage *covers.Storage, version string) *Exporter {
	return &Exporter{store: s, covers: coverStorage, version: version}
}

// Export writes a backup archive to outputPath.
func (e *Exporter) Export(ctx context.Context, opts Options, outputPath string) (*Result, error) {
	start := time.Now()

	// Write to temp file, rename on success (atomic)
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	// Tee to SHA-256 hasher
	hash := sha256.New()
	mw := io.MultiWriter(f, hash)
	zw := zip.NewWriter(mw)

	manifest := &Manifest{
		Version:        FormatVersion,
		CreatedAt:      time.Now(),
		ServerVersion:  e.version,
		IncludesCovers: opts.IncludeCovers,
	}

	books, err := e.exportEntities(ctx, zw, &manifest.Counts)
	if err != nil {
		return nil, err
	}

	if opts.IncludeCovers {
		n, err := e.exportCovers(zw, books)
		if err != nil {
			return nil, fmt.Errorf("export covers: %w", err)
		}
		manifest.Counts.Covers = n
	}

	if err := writeEntry(zw, "manifest.json", manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close backup file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("finalize backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	return &Result{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// exportEntities writes users, categories, books, and reviews, and returns
// the exported books for the cover pass.
func (e *Exporter) exportEntities(ctx context.Context, zw *zip.Writer, counts *EntityCounts) ([]*domain.Book, error) {
	var users []*domain.User
	for user, err := range e.store.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("export users: %w", err)
		}
		users = append(users, user)
	}
	if err := writeEntry(zw, "entities/users.json", users); err != nil {
		return nil, err
	}
	counts.Users = len(users)

	var categories []*domain.Category
	for category, err := range e.store.Categories.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("export categories: %w", err)
		}
		categories = append(categories, category)
	}
	if err := writeEntry(zw, "entities/categories.json", categories); err != nil {
		return nil, err
	}
	counts.Categories = len(categories)

	books, err := e.store.ListBooks(ctx, store.BookFilter{})
	if err != nil {
		return nil, fmt.Errorf("export books: %w", err)
	}
	if err := writeEntry(zw, "entities/books.json", books); err != nil {
		return nil, err
	}
	counts.Books = len(books)

	var reviews []*domain.Review
	for _, book := range books {
		bookReviews, err := e.store.ReviewsByBook(ctx, book.ID)
		if err != nil {
			return nil, fmt.Errorf("export reviews for %s: %w", book.ID, err)
		}
		reviews = append(reviews, bookReviews...)
	}
	if err := writeEntry(zw, "entities/reviews.json", reviews); err != nil {
		return nil, err
	}
	counts.Reviews = len(reviews)

	return books, nil
}

// exportCovers copies each stored cover image into the archive.
func (e *Exporter) exportCovers(zw *zip.Writer, books []*domain.Book) (int, error) {
	count := 0
	for _, book := range books {
		if !e.covers.Exists(book.ID) {
			continue
		}

		data, err := e.covers.Get(book.ID)
		if err != nil {
			return count, fmt.Errorf("read cover %s: %w", book.ID, err)
		}

		w, err := zw.Create("covers/" + book.ID + ".jpg")
		if err != nil {
			return count, err
		}
		if _, err := w.Write(data); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// writeEntry marshals v as JSON into a new archive entry.
func writeEntry(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	return json.MarshalWrite(w, v)
}
