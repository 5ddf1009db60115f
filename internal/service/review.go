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

// ReviewService manages the review lifecycle. Every operation is scoped to
// the acting user: a reviewer can only ever touch their own review, and a
// foreign review is indistinguishable from a missing one.
type ReviewService struct {
	store    *store.Store
	enricher *dto.Enricher
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(store *store.Store, enricher *dto.Enricher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		enricher: enricher,
		logger:   logger,
	}
}

// AddReviewRequest contains a new review's fields.
type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=10000"`
}

// UpdateReviewRequest carries partial updates; nil fields are left unchanged.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=10000"`
}

// AddReview creates userID's review of bookID. If the user has already
// reviewed the book the call fails with a conflict carrying the existing
// review's ID, so clients can offer an edit instead.
func (s *ReviewService) AddReview(ctx context.Context, bookID, userID string, req AddReviewRequest) (*dto.Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	reviewID, err := id.Generate("review")
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	review := &domain.Review{
		BookID:  bookID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	review.ID = reviewID

	if err := s.store.CreateReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, store.ErrBookNotFound):
			return nil, domainerrors.NotFound("book not found")
		case errors.Is(err, store.ErrReviewExists):
			return nil, s.duplicateReviewError(ctx, bookID, userID)
		case errors.Is(err, store.ErrInvalidRating):
			return nil, domainerrors.Validationf("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Review created", "review_id", reviewID, "book_id", bookID, "user_id", userID)
	}

	return s.enricher.EnrichReview(ctx, review), nil
}

// EditReview applies a partial update to the caller's own review.
func (s *ReviewService) EditReview(ctx context.Context, reviewID, userID string, req UpdateReviewRequest) (*dto.Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	current, err := s.ownReview(ctx, reviewID, userID)
	if err != nil {
		return nil, err
	}

	rating := current.Rating
	comment := current.Comment
	if req.Rating != nil {
		rating = *req.Rating
	}
	if req.Comment != nil {
		comment = *req.Comment
	}

	updated, err := s.store.UpdateReview(ctx, reviewID, userID, rating, comment)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrReviewNotFound):
			return nil, domainerrors.NotFound("review not found")
		case errors.Is(err, store.ErrInvalidRating):
			return nil, domainerrors.Validationf("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	return s.enricher.EnrichReview(ctx, updated), nil
}

// DeleteReview removes the caller's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	if err := s.store.DeleteReview(ctx, reviewID, userID); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return domainerrors.NotFound("review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Review deleted", "review_id", reviewID, "user_id", userID)
	}
	return nil
}

// ownReview fetches a review only if it belongs to userID. A review owned by
// someone else reports not found, never forbidden.
func (s *ReviewService) ownReview(ctx context.Context, reviewID, userID string) (*domain.Review, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.UserID != userID {
		return nil, domainerrors.NotFound("review not found")
	}
	return review, nil
}

// duplicateReviewError builds the conflict returned for a second review of
// the same book, including the existing review's ID when it can be resolved.
func (s *ReviewService) duplicateReviewError(ctx context.Context, bookID, userID string) error {
	conflict := domainerrors.Conflict("you have already reviewed this book")
	existing, err := s.store.GetReviewForUser(ctx, bookID, userID)
	if err != nil {
		return conflict
	}
	return conflict.WithDetails(map[string]string{"review_id": existing.ID})
}
