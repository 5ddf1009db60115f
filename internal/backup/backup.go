// Package backup creates and restores archives of the catalog: users,
// categories, books, reviews, and optionally the stored cover images.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const archiveSuffix = ".shelfmark.zip"

// Options configures backup creation.
type Options struct {
	IncludeCovers bool
	OutputPath    string
}

// Result contains the outcome of a backup operation.
type Result struct {
	ID       string
	Path     string
	Size     int64
	Counts   EntityCounts
	Duration time.Duration
	Checksum string
}

// Info describes a stored backup archive.
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages backup creation and listing.
type Service struct {
	exporter  *Exporter
	backupDir string
	logger    *slog.Logger
}

// NewService creates a backup Service writing archives under backupDir.
func NewService(exporter *Exporter, backupDir string, logger *slog.Logger) *Service {
	return &Service{
		exporter:  exporter,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Create creates a new backup archive.
func (s *Service) Create(ctx context.Context, opts Options) (*Result, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := time.Now().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+archiveSuffix)
	}

	s.logger.Info("creating backup",
		"output", outputPath,
		"include_covers", opts.IncludeCovers)

	result, err := s.exporter.Export(ctx, opts, outputPath)
	if err != nil {
		return nil, err
	}
	result.ID = strings.TrimSuffix(filepath.Base(result.Path), archiveSuffix)

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return result, nil
}

// List returns all available backups, newest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, Info{
			ID:        strings.TrimSuffix(entry.Name(), archiveSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by ID.
func (s *Service) Get(ctx context.Context, id string) (*Info, error) {
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &Info{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup archive.
func (s *Service) Delete(ctx context.Context, id string) error {
	path := s.GetPath(id)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}

	return os.Remove(path)
}

// GetPath returns the file path for a backup ID.
func (s *Service) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+archiveSuffix)
}
