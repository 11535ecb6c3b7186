package entities

import "time"

// StoredItem is the persisted form of an enriched catalog record.
type StoredItem struct {
	ID           string            `json:"id" db:"id"`
	PartNumber   string            `json:"part_number" db:"part_number"`
	Manufacturer string            `json:"manufacturer" db:"manufacturer"`
	Raw          *SourceRecord     `json:"raw" db:"raw"`
	Enriched     *EnrichmentResult `json:"enriched" db:"enriched"`
	AIVersion    string            `json:"ai_version" db:"ai_version"`
	Hash         string            `json:"hash" db:"hash"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Enrichment run statuses recorded in the log.
const (
	StatusEnriched = "enriched"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// LogEntry is one append-only enrichment log row.
type LogEntry struct {
	ItemID     string    `json:"item_id" db:"item_id"`
	Status     string    `json:"status" db:"status"`
	AIVersion  string    `json:"ai_version" db:"ai_version"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	Error      *string   `json:"error" db:"error"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
