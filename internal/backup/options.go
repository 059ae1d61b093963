package backup

import "time"

// BackupOptions configures backup creation.
type BackupOptions struct {
	OutputPath string // Where to write the backup file; defaults to the backup dir
}

// RestoreOptions configures restoration.
type RestoreOptions struct {
	MergeStrategy MergeStrategy
	DryRun        bool // Validate and count without writing
}

// MergeStrategy determines conflict resolution when a board already exists.
type MergeStrategy string

const (
	// MergeKeepLocal keeps the stored board.
	MergeKeepLocal MergeStrategy = "keep_local"

	// MergeKeepBackup replaces the stored board with the backup's.
	MergeKeepBackup MergeStrategy = "keep_backup"

	// MergeNewest keeps whichever has the newer UpdatedAt.
	MergeNewest MergeStrategy = "newest"
)

// Valid returns true if the merge strategy is recognized.
// Empty means MergeKeepLocal.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepLocal, MergeKeepBackup, MergeNewest, "":
		return true
	default:
		return false
	}
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid          bool         `json:"valid"`
	Manifest       *Manifest    `json:"manifest,omitempty"`
	ExpectedCounts EntityCounts `json:"expected_counts"`
	Errors         []string     `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}
