// Package covers stores book cover images on the filesystem and computes
// BlurHash placeholders for them.
package covers

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxCoverSize bounds uploaded cover images at 5 MiB.
const MaxCoverSize = 5 << 20

// Storage manages cover files under a single directory.
// Safe for concurrent use.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates cover storage rooted at {basePath}/covers.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "covers")
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	return &Storage{basePath: storagePath}, nil
}

// Save validates and stores cover data for a book, keyed by book ID.
// The image must decode as JPEG, PNG, GIF, or WebP. Returns the BlurHash
// placeholder computed from the stored image.
func (s *Storage) Save(bookID string, data []byte) (string, error) {
	if bookID == "" {
		return "", fmt.Errorf("book ID cannot be empty")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("cover data cannot be empty")
	}
	if len(data) > MaxCoverSize {
		return "", fmt.Errorf("cover exceeds maximum size of %d bytes", MaxCoverSize)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}

	hash, err := computeBlurHash(img)
	if err != nil {
		return "", fmt.Errorf("compute blurhash: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(bookID), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write cover file: %w", err)
	}

	return hash, nil
}

// Get retrieves the stored cover bytes for a book.
func (s *Storage) Get(bookID string) ([]byte, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("cover not found for %s: %w", bookID, err)
		}
		return nil, fmt.Errorf("failed to read cover file: %w", err)
	}

	return data, nil
}

// Exists reports whether a cover is stored for the book.
func (s *Storage) Exists(bookID string) bool {
	if bookID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(bookID))
	return err == nil
}

// Delete removes a book's cover. Missing files are not an error.
func (s *Storage) Delete(bookID string) error {
	if bookID == "" {
		return fmt.Errorf("book ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(bookID)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete cover file: %w", err)
	}

	return nil
}

// Hash computes the SHA256 of a stored cover, hex-encoded for ETag use.
func (s *Storage) Hash(bookID string) (string, error) {
	data, err := s.Get(bookID)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// Path returns the filesystem path for a book's cover.
func (s *Storage) Path(bookID string) string {
	return filepath.Join(s.basePath, bookID+".jpg")
}
