package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive layout.
const (
	manifestFile = "manifest.json"
	usersFile    = "entities/users.jsonl"
	boardsFile   = "entities/boards.jsonl"
)

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	ServerName    string `json:"server_name"`
	ServerVersion string `json:"server_version"`

	Counts EntityCounts `json:"counts"`
}

// EntityCounts tracks entity counts for validation and reporting.
type EntityCounts struct {
	Users  int `json:"users"`
	Boards int `json:"boards"`
	Lists  int `json:"lists"`
	Cards  int `json:"cards"`
}
