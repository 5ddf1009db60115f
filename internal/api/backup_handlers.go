package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmarkapp/shelfmark-server/internal/backup"
	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
)

// createBackupRequest configures a backup run. The body is optional;
// an empty body creates a metadata-only backup.
type createBackupRequest struct {
	IncludeCovers bool `json:"include_covers"`
}

// backupResult is the API view of a completed backup.
type backupResult struct {
	ID         string              `json:"id"`
	Size       int64               `json:"size"`
	Counts     backup.EntityCounts `json:"counts"`
	DurationMS int64               `json:"duration_ms"`
	Checksum   string              `json:"checksum"`
}

// handleListBackups returns available backup archives, newest first (admin only).
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.backupService.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list backups", "error", err)
		response.InternalError(w, "Failed to list backups", s.logger)
		return
	}

	response.Success(w, backups, s.logger)
}

// handleCreateBackup creates a new backup archive (admin only).
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req createBackupRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			response.BadRequest(w, "Invalid request body", s.logger)
			return
		}
	}

	result, err := s.backupService.Create(r.Context(), backup.Options{
		IncludeCovers: req.IncludeCovers,
	})
	if err != nil {
		s.logger.Error("Backup failed", "error", err)
		response.InternalError(w, "Backup failed", s.logger)
		return
	}

	response.Created(w, backupResult{
		ID:         result.ID,
		Size:       result.Size,
		Counts:     result.Counts,
		DurationMS: result.Duration.Milliseconds(),
		Checksum:   result.Checksum,
	}, s.logger)
}

// handleDownloadBackup streams a backup archive (admin only).
func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := s.backupService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			response.NotFound(w, "Backup not found", s.logger)
			return
		}
		s.logger.Error("Failed to stat backup", "id", id, "error", err)
		response.InternalError(w, "Failed to read backup", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.shelfmark.zip"`)
	http.ServeFile(w, r, info.Path)
}

// handleDeleteBackup removes a backup archive (admin only).
func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.backupService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			response.NotFound(w, "Backup not found", s.logger)
			return
		}
		s.logger.Error("Failed to delete backup", "id", id, "error", err)
		response.InternalError(w, "Failed to delete backup", s.logger)
		return
	}

	response.NoContent(w)
}

// handleRestoreBackup merges a backup archive into the live database
// (admin only). Existing entities are never overwritten.
func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := s.backupService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, backup.ErrBackupNotFound) {
			response.NotFound(w, "Backup not found", s.logger)
			return
		}
		s.logger.Error("Failed to stat backup", "id", id, "error", err)
		response.InternalError(w, "Failed to read backup", s.logger)
		return
	}

	start := time.Now()
	result, err := s.restoreService.Restore(r.Context(), info.Path)
	if err != nil {
		if errors.Is(err, backup.ErrInvalidBackup) {
			response.BadRequest(w, "Backup archive is invalid", s.logger)
			return
		}
		s.logger.Error("Restore failed", "id", id, "error", err)
		response.InternalError(w, "Restore failed", s.logger)
		return
	}

	s.logger.Info("Backup restored", "id", id, "duration", time.Since(start))
	response.Success(w, result, s.logger)
}
