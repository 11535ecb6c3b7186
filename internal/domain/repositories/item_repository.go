package repositories

import (
	"context"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// ItemRepository defines the interface for enriched item storage. Both the
// embedded and the relational backend implement the same semantics.
type ItemRepository interface {
	// GetByHash returns the most recent item whose hash matches, or nil.
	GetByHash(ctx context.Context, hash string) (*entities.StoredItem, error)

	// SaveItem upserts an item keyed by its id.
	SaveItem(ctx context.Context, item *entities.StoredItem) error

	// Log appends one enrichment log entry.
	Log(ctx context.Context, entry *entities.LogEntry) error

	// RecentLogs returns up to limit log entries, newest first.
	RecentLogs(ctx context.Context, limit int) ([]*entities.LogEntry, error)

	// Close releases the backend connection.
	Close() error
}
