package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/partdesk/catalog-enrichment/internal/adapters/database"
	"github.com/partdesk/catalog-enrichment/internal/adapters/localstore"
	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/repositories"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/postgres"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/sqlite"
	"github.com/partdesk/catalog-enrichment/pkg/config"
	apperrors "github.com/partdesk/catalog-enrichment/pkg/errors"
)

// Mode identifies the selected persistence backend.
type Mode string

const (
	ModeEmbedded   Mode = "embedded"
	ModeRelational Mode = "relational"
)

// Adapter is the backend-agnostic storage façade. Callers never learn which
// backend is active; save and log failures are absorbed and logged so a
// storage hiccup never aborts an in-flight enrichment batch.
type Adapter struct {
	repo   repositories.ItemRepository
	mode   Mode
	logger zerolog.Logger
}

// Init selects a backend once at process start. An explicit mode pins the
// choice; "auto" probes the embedded store and prefers it, falling back to
// the relational store. No working backend at all is a hard failure.
func Init(ctx context.Context, cfg *config.Config) (*Adapter, error) {
	logger := log.With().Str("component", "storage").Logger()

	switch cfg.Storage.Mode {
	case "embedded":
		repo, err := openEmbedded(ctx, cfg)
		if err != nil {
			return nil, apperrors.NewUnavailableError("embedded store unavailable", err)
		}
		return newAdapter(repo, ModeEmbedded, logger), nil

	case "relational":
		repo, err := openRelational(ctx, cfg)
		if err != nil {
			return nil, apperrors.NewUnavailableError("relational store unavailable", err)
		}
		return newAdapter(repo, ModeRelational, logger), nil

	case "", "auto":
		if repo, err := openEmbedded(ctx, cfg); err == nil {
			return newAdapter(repo, ModeEmbedded, logger), nil
		} else {
			logger.Warn().Err(err).Msg("embedded store unavailable, trying relational")
		}
		repo, err := openRelational(ctx, cfg)
		if err != nil {
			return nil, apperrors.NewUnavailableError("no storage backend initializable", err)
		}
		return newAdapter(repo, ModeRelational, logger), nil

	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown storage mode %q", cfg.Storage.Mode))
	}
}

func newAdapter(repo repositories.ItemRepository, mode Mode, logger zerolog.Logger) *Adapter {
	logger.Info().Str("mode", string(mode)).Msg("storage backend selected")
	return &Adapter{repo: repo, mode: mode, logger: logger}
}

func openEmbedded(ctx context.Context, cfg *config.Config) (repositories.ItemRepository, error) {
	client, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	return localstore.NewItemAdapter(client), nil
}

func openRelational(ctx context.Context, cfg *config.Config) (repositories.ItemRepository, error) {
	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}
	repo, err := database.NewItemAdapter(ctx, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return repo, nil
}

// NewAdapterForRepo wraps an explicit repository. Used by tests and by the
// dry-run path.
func NewAdapterForRepo(repo repositories.ItemRepository, mode Mode) *Adapter {
	return &Adapter{repo: repo, mode: mode, logger: log.With().Str("component", "storage").Logger()}
}

// Mode reports the selected backend.
func (a *Adapter) Mode() Mode {
	return a.mode
}

// GetByHash returns the most recent matching item, or nil. Lookup errors are
// logged and reported as a miss so a flaky backend degrades to re-enrichment
// rather than failure.
func (a *Adapter) GetByHash(ctx context.Context, hash string) *entities.StoredItem {
	item, err := a.repo.GetByHash(ctx, hash)
	if err != nil {
		a.logger.Error().Err(err).Str("hash", hash).Msg("storage lookup failed")
		return nil
	}
	return item
}

// SaveItem upserts the item. Failures are logged, never propagated.
func (a *Adapter) SaveItem(ctx context.Context, item *entities.StoredItem) {
	if err := a.repo.SaveItem(ctx, item); err != nil {
		a.logger.Error().Err(err).Str("item_id", item.ID).Msg("storage save failed")
	}
}

// Log appends a log entry. Failures are logged, never propagated.
func (a *Adapter) Log(ctx context.Context, entry *entities.LogEntry) {
	if err := a.repo.Log(ctx, entry); err != nil {
		a.logger.Error().Err(err).Str("item_id", entry.ItemID).Msg("storage log append failed")
	}
}

// RecentLogs returns recent log entries for reporting.
func (a *Adapter) RecentLogs(ctx context.Context, limit int) ([]*entities.LogEntry, error) {
	return a.repo.RecentLogs(ctx, limit)
}

// Close releases the selected backend.
func (a *Adapter) Close() error {
	return a.repo.Close()
}
