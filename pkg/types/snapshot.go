package types

import (
	"encoding/json"
	"time"
)

// SnapshotVersion is the document version written by this module.
const SnapshotVersion = "1.2"

// Snapshot is the unit of export, import and remote sync: the full catalog
// plus an opaque auxiliary configuration that is carried but never
// interpreted.
type Snapshot struct {
	Items           []Item          `json:"memes"`
	Categories      []Category      `json:"categories"`
	AuxiliaryConfig json.RawMessage `json:"llmConfigs,omitempty"`
	ExportedAt      time.Time       `json:"exportDate"`
	SchemaVersion   string          `json:"version"`
}

// ImportMode selects how an imported snapshot is applied.
type ImportMode string

const (
	// ImportOverwrite replaces the local catalog with the snapshot.
	ImportOverwrite ImportMode = "overwrite"
	// ImportMerge adds records whose ids are not present locally.
	ImportMerge ImportMode = "merge"
)

// Valid reports whether m is a known mode.
func (m ImportMode) Valid() bool {
	return m == ImportOverwrite || m == ImportMerge
}
