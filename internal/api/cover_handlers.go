package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/media/covers"
)

// handleGetCover serves a book's cover image with ETag caching.
func (s *Server) handleGetCover(w http.ResponseWriter, r *http.Request) {
	data, etag, err := s.bookService.GetCover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	quoted := `"` + etag + `"`
	if r.Header.Get("If-None-Match") == quoted {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("ETag", quoted)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil && s.logger != nil {
		s.logger.Debug("Failed to write cover response", "error", err)
	}
}

// handleUploadCover stores a cover for a book (admin only). The request body
// is the raw image; JPEG, PNG, GIF, and WebP are accepted.
func (s *Server) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, covers.MaxCoverSize+1))
	if err != nil {
		response.BadRequest(w, "Failed to read request body", s.logger)
		return
	}

	book, err := s.bookService.UploadCover(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}
