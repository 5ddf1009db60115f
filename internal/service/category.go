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
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

// CategoryService manages the admin-curated category list.
type CategoryService struct {
	store    *store.Store
	enricher *dto.Enricher
	logger   *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store *store.Store, enricher *dto.Enricher, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		store:    store,
		enricher: enricher,
		logger:   logger,
	}
}

// CategoryRequest contains a category's editable fields.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// ListCategories returns all categories with their current book counts.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*dto.Category, error) {
	out := []*dto.Category{}
	for category, err := range s.store.Categories.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		count, err := s.store.CountBooksInCategory(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("count books: %w", err)
		}
		out = append(out, s.enricher.EnrichCategory(category, count))
	}
	return out, nil
}

// CreateCategory adds a category. Names are unique, case-insensitively.
func (s *CategoryService) CreateCategory(ctx context.Context, req CategoryRequest) (*domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	categoryID, err := id.Generate("category")
	if err != nil {
		return nil, fmt.Errorf("generate category ID: %w", err)
	}

	category := &domain.Category{Name: req.Name, Description: req.Description}
	category.ID = categoryID
	category.InitTimestamps()

	if err := s.store.Categories.Create(ctx, categoryID, category); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a category with this name already exists")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Category created", "category_id", categoryID, "name", category.Name)
	}
	return category, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, categoryID string, req CategoryRequest) (*domain.Category, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, domainerrors.NotFound("category not found")
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	category.Name = req.Name
	category.Description = req.Description
	category.Touch()

	if err := s.store.Categories.Update(ctx, categoryID, category); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("category not found")
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.AlreadyExists("a category with this name already exists")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category. Deletion is rejected while any book
// still references the category.
func (s *CategoryService) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		switch {
		case errors.Is(err, store.ErrCategoryNotFound):
			return domainerrors.NotFound("category not found")
		case errors.Is(err, store.ErrCategoryInUse):
			return domainerrors.Conflict("category is still referenced by books")
		}
		return fmt.Errorf("delete category: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Category deleted", "category_id", categoryID)
	}
	return nil
}
