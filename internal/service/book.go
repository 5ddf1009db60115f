package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/dto"
	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
	"github.com/shelfmarkapp/shelfmark-server/internal/id"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// BookService exposes catalog browsing for everyone and catalog management
// for admins.
type BookService struct {
	store    *store.Store
	enricher *dto.Enricher
	covers   *covers.Storage
	logger   *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, enricher *dto.Enricher, coverStorage *covers.Storage, logger *slog.Logger) *BookService {
	return &BookService{
		store:    store,
		enricher: enricher,
		covers:   coverStorage,
		logger:   logger,
	}
}

// CreateBookRequest contains the fields for a new catalog entry.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Author      string `json:"author" validate:"required,max=500"`
	CategoryID  string `json:"category_id" validate:"omitempty"`
	Description string `json:"description" validate:"omitempty,max=10000"`
}

// UpdateBookRequest carries partial updates; nil fields are left unchanged.
type UpdateBookRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=500"`
	Author      *string `json:"author" validate:"omitempty,min=1,max=500"`
	CategoryID  *string `json:"category_id"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
}

// ListBooks returns the catalog filtered by an optional substring query
// (matched against title and author, case-insensitively) and an optional
// category. An unknown category simply matches nothing.
func (s *BookService) ListBooks(ctx context.Context, query, categoryID string) ([]*dto.Book, error) {
	books, err := s.store.ListBooks(ctx, store.BookFilter{Query: query, CategoryID: categoryID})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return s.enricher.EnrichBooks(ctx, books)
}

// GetBook returns the detail view of a book, including its reviews.
// viewerID may be empty for anonymous requests.
func (s *BookService) GetBook(ctx context.Context, bookID, viewerID string) (*dto.BookDetail, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return s.enricher.EnrichBookDetail(ctx, book, viewerID)
}

// CreateBook adds a book to the catalog.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*dto.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Title:       req.Title,
		Author:      req.Author,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	book.ID = bookID

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, domainerrors.Validation("category does not exist")
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book created", "book_id", bookID, "title", book.Title)
	}

	return s.enricher.EnrichBook(ctx, book)
}

// UpdateBook applies a partial update to a book.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*dto.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.CategoryID != nil {
		book.CategoryID = *req.CategoryID
	}
	if req.Description != nil {
		book.Description = *req.Description
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		switch {
		case errors.Is(err, store.ErrBookNotFound):
			return nil, domainerrors.NotFound("book not found")
		case errors.Is(err, store.ErrCategoryNotFound):
			return nil, domainerrors.Validation("category does not exist")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	return s.enricher.EnrichBook(ctx, book)
}

// DeleteBook removes a book, its reviews, and its stored cover.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.covers.Delete(bookID); err != nil && s.logger != nil {
		// The catalog entry is gone; an orphaned cover file is only noise.
		s.logger.Warn("Failed to delete cover file", "book_id", bookID, "error", err)
	}

	if s.logger != nil {
		s.logger.Info("Book deleted", "book_id", bookID)
	}
	return nil
}

// UploadCover stores a cover image for a book and records its BlurHash
// placeholder on the catalog entry.
func (s *BookService) UploadCover(ctx context.Context, bookID string, data []byte) (*dto.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	blurHash, err := s.covers.Save(bookID, data)
	if err != nil {
		return nil, domainerrors.Validation("invalid cover image").WithCause(err)
	}

	book.CoverImage = blurHash
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	return s.enricher.EnrichBook(ctx, book)
}

// GetCover returns the cover bytes for a book plus a strong ETag.
func (s *BookService) GetCover(ctx context.Context, bookID string) (data []byte, etag string, err error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, "", domainerrors.NotFound("book not found")
		}
		return nil, "", fmt.Errorf("get book: %w", err)
	}
	if !book.HasCover() || !s.covers.Exists(bookID) {
		return nil, "", domainerrors.NotFound("no cover for this book")
	}

	data, err = s.covers.Get(bookID)
	if err != nil {
		return nil, "", fmt.Errorf("read cover: %w", err)
	}

	etag, err = s.covers.Hash(bookID)
	if err != nil {
		return nil, "", fmt.Errorf("hash cover: %w", err)
	}

	return data, etag, nil
}
