package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// handleAddReview creates the caller's review of a book. A second review of
// the same book answers 409 with the existing review's ID in the error
// details.
func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	var req service.AddReviewRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	review, err := s.reviewService.AddReview(r.Context(), chi.URLParam(r, "id"), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, review, s.logger)
}

// handleEditReview applies a partial update to the caller's own review.
// Reviews owned by other users answer 404, never 403.
func (s *Server) handleEditReview(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateReviewRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	review, err := s.reviewService.EditReview(r.Context(), chi.URLParam(r, "id"), getUserID(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, review, s.logger)
}

// handleDeleteReview removes the caller's own review.
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviewService.DeleteReview(r.Context(), chi.URLParam(r, "id"), getUserID(r.Context())); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
