package backup

import "errors"

var (
	// ErrBackupNotFound is returned when a backup ID does not match any archive.
	ErrBackupNotFound = errors.New("backup not found")
	// ErrInvalidBackup is returned when an archive is missing its manifest or
	// was written by an incompatible format version.
	ErrInvalidBackup = errors.New("invalid backup archive")
)
