package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/repositories"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/sqlite"
	apperrors "github.com/partdesk/catalog-enrichment/pkg/errors"
)

// ItemAdapter implements ItemRepository on the embedded SQLite backend with
// the same semantics as the relational adapter.
type ItemAdapter struct {
	client *sqlite.Client
}

// NewItemAdapter creates a new adapter over an open embedded store.
func NewItemAdapter(client *sqlite.Client) repositories.ItemRepository {
	return &ItemAdapter{client: client}
}

// GetByHash returns the most recent item whose hash matches, or nil.
func (a *ItemAdapter) GetByHash(ctx context.Context, hash string) (*entities.StoredItem, error) {
	row := a.client.DB().QueryRowContext(ctx, `
		SELECT id, part_number, manufacturer, raw, enriched, ai_version, hash, updated_at
		FROM enriched_items
		WHERE hash = ?
		ORDER BY updated_at DESC
		LIMIT 1`, hash)

	var rawText, enrichedText, updatedAt string
	var manufacturer, aiVersion sql.NullString
	item := &entities.StoredItem{}

	err := row.Scan(
		&item.ID,
		&item.PartNumber,
		&manufacturer,
		&rawText,
		&enrichedText,
		&aiVersion,
		&item.Hash,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get item by hash", err)
	}

	item.Manufacturer = manufacturer.String
	item.AIVersion = aiVersion.String
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = t
	}
	if rawText != "" {
		_ = json.Unmarshal([]byte(rawText), &item.Raw)
	}
	if enrichedText != "" {
		_ = json.Unmarshal([]byte(enrichedText), &item.Enriched)
	}
	return item, nil
}

// SaveItem upserts an item keyed by its id.
func (a *ItemAdapter) SaveItem(ctx context.Context, item *entities.StoredItem) error {
	if item == nil {
		return apperrors.NewValidationError("item is required")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	rawBytes, _ := json.Marshal(item.Raw)
	enrichedBytes, _ := json.Marshal(item.Enriched)

	_, err := a.client.DB().ExecContext(ctx, `
		INSERT INTO enriched_items
			(id, part_number, manufacturer, raw, enriched, ai_version, hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			part_number = excluded.part_number,
			manufacturer = excluded.manufacturer,
			raw = excluded.raw,
			enriched = excluded.enriched,
			ai_version = excluded.ai_version,
			hash = excluded.hash,
			updated_at = excluded.updated_at`,
		item.ID,
		item.PartNumber,
		item.Manufacturer,
		string(rawBytes),
		string(enrichedBytes),
		item.AIVersion,
		item.Hash,
		item.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.NewInternalError("failed to upsert item", err)
	}
	return nil
}

// Log appends one enrichment log entry.
func (a *ItemAdapter) Log(ctx context.Context, entry *entities.LogEntry) error {
	if entry == nil {
		return apperrors.NewValidationError("log entry is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := a.client.DB().ExecContext(ctx, `
		INSERT INTO enrichment_logs (item_id, status, ai_version, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.Status,
		entry.AIVersion,
		entry.DurationMs,
		entry.Error,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.NewInternalError("failed to append log entry", err)
	}
	return nil
}

// RecentLogs returns up to limit log entries, newest first.
func (a *ItemAdapter) RecentLogs(ctx context.Context, limit int) ([]*entities.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.client.DB().QueryContext(ctx, `
		SELECT item_id, status, ai_version, duration_ms, error, created_at
		FROM enrichment_logs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list log entries", err)
	}
	defer rows.Close()

	var entries []*entities.LogEntry
	for rows.Next() {
		entry := &entities.LogEntry{}
		var errText sql.NullString
		var createdAt string
		if err := rows.Scan(&entry.ItemID, &entry.Status, &entry.AIVersion, &entry.DurationMs, &errText, &createdAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan log entry", err)
		}
		if errText.Valid {
			entry.Error = &errText.String
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the backend connection.
func (a *ItemAdapter) Close() error {
	return a.client.Close()
}
