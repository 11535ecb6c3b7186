package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/repositories"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/postgres"
	apperrors "github.com/partdesk/catalog-enrichment/pkg/errors"
)

// ItemAdapter implements ItemRepository on the relational backend.
type ItemAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewItemAdapter creates a new adapter. The schema check is lazy and runs at
// most once per process.
func NewItemAdapter(ctx context.Context, client *postgres.Client) (repositories.ItemRepository, error) {
	if err := client.EnsureSchema(ctx); err != nil {
		return nil, apperrors.NewInternalError("failed to ensure enrichment schema", err)
	}
	return &ItemAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}, nil
}

// GetByHash returns the most recent item whose hash matches, or nil.
func (a *ItemAdapter) GetByHash(ctx context.Context, hash string) (*entities.StoredItem, error) {
	query, args, err := a.db.Select(
		"id",
		"part_number",
		"manufacturer",
		"raw",
		"enriched",
		"ai_version",
		"hash",
		"updated_at",
	).
		From("enriched_items").
		Where(goqu.Ex{"hash": hash}).
		Order(goqu.I("updated_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build item query", err)
	}

	var rawBytes, enrichedBytes []byte
	var manufacturer, aiVersion sql.NullString
	item := &entities.StoredItem{}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.PartNumber,
		&manufacturer,
		&rawBytes,
		&enrichedBytes,
		&aiVersion,
		&item.Hash,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get item by hash", err)
	}

	item.Manufacturer = manufacturer.String
	item.AIVersion = aiVersion.String
	if len(rawBytes) > 0 {
		_ = json.Unmarshal(rawBytes, &item.Raw)
	}
	if len(enrichedBytes) > 0 {
		_ = json.Unmarshal(enrichedBytes, &item.Enriched)
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

	query := `
		INSERT INTO enriched_items
			(id, part_number, manufacturer, raw, enriched, ai_version, hash, updated_at)
		VALUES
			($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			part_number = EXCLUDED.part_number,
			manufacturer = EXCLUDED.manufacturer,
			raw = EXCLUDED.raw,
			enriched = EXCLUDED.enriched,
			ai_version = EXCLUDED.ai_version,
			hash = EXCLUDED.hash,
			updated_at = EXCLUDED.updated_at
	`

	_, err := a.client.DB().ExecContext(
		ctx,
		query,
		item.ID,
		item.PartNumber,
		item.Manufacturer,
		string(rawBytes),
		string(enrichedBytes),
		item.AIVersion,
		item.Hash,
		item.UpdatedAt,
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

	insert := a.db.Insert("enrichment_logs").Rows(goqu.Record{
		"item_id":     entry.ItemID,
		"status":      entry.Status,
		"ai_version":  entry.AIVersion,
		"duration_ms": entry.DurationMs,
		"error":       entry.Error,
		"created_at":  entry.CreatedAt,
	})
	query, args, err := insert.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build log insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append log entry", err)
	}
	return nil
}

// RecentLogs returns up to limit log entries, newest first.
func (a *ItemAdapter) RecentLogs(ctx context.Context, limit int) ([]*entities.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := a.db.Select("item_id", "status", "ai_version", "duration_ms", "error", "created_at").
		From("enrichment_logs").
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build log query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list log entries", err)
	}
	defer rows.Close()

	var entries []*entities.LogEntry
	for rows.Next() {
		entry := &entities.LogEntry{}
		var errText sql.NullString
		if err := rows.Scan(&entry.ItemID, &entry.Status, &entry.AIVersion, &entry.DurationMs, &errText, &entry.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan log entry", err)
		}
		if errText.Valid {
			entry.Error = &errText.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the backend connection.
func (a *ItemAdapter) Close() error {
	return a.client.Close()
}
