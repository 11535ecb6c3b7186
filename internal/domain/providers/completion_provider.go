package providers

import (
	"context"
	"errors"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// ErrCompletionUnauthorized marks authentication/authorization failures from a
// completion provider. Only these count toward circuit breaking.
var ErrCompletionUnauthorized = errors.New("completion provider rejected credentials")

// CompletionProvider is one interchangeable AI text-completion backend.
type CompletionProvider interface {
	// Name identifies the provider in cache tags and breaker state.
	Name() string

	// Classify categorizes a catalog record.
	Classify(ctx context.Context, record *entities.SourceRecord) (*entities.ClassificationResult, error)

	// GenerateContent produces marketing copy for a catalog record.
	GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) (*entities.ContentResult, error)
}
