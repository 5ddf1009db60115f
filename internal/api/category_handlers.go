package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// handleListCategories returns all categories with book counts.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categoryService.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("Failed to list categories", "error", err)
		response.InternalError(w, "Failed to retrieve categories", s.logger)
		return
	}

	response.Success(w, categories, s.logger)
}

// handleCreateCategory adds a category (admin only).
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	category, err := s.categoryService.CreateCategory(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, category, s.logger)
}

// handleUpdateCategory renames a category (admin only).
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	category, err := s.categoryService.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, category, s.logger)
}

// handleDeleteCategory removes a category (admin only). Deletion is rejected
// with 409 while books still reference the category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categoryService.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
