package providers

import (
	"context"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// SynonymExpander produces search synonyms for a record's identity fields.
// Best-effort: a failure downgrades to "no synonyms", never fails a run.
type SynonymExpander interface {
	GenerateSynonyms(ctx context.Context, record *entities.SourceRecord) ([]string, error)
}

// RulesBonus is the output of the external rules collaborator.
type RulesBonus struct {
	Tags         []string `json:"tags"`
	Bundles      []string `json:"bundles"`
	QualityBonus int      `json:"quality_bonus"`
}

// RulesResolver applies external business rules to a record. Best-effort.
type RulesResolver interface {
	Resolve(ctx context.Context, record *entities.SourceRecord) (*RulesBonus, error)
}

// SnapshotStore persists an opaque byte blob between process runs. The AI
// gateway uses it for cache warm-start without touching the filesystem itself.
type SnapshotStore interface {
	Save(data []byte) error
	Load() ([]byte, error)
}
