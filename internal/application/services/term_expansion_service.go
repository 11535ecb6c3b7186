package services

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// defaultTerms is the built-in English/Spanish expansion table, overridable
// from a JSON config file.
var defaultTerms = map[string][]string{
	"switch":   {"network switch", "conmutador", "ethernet switch"},
	"router":   {"enrutador", "gateway"},
	"firewall": {"cortafuegos", "security appliance"},
	"server":   {"servidor", "rack server"},
	"cable":    {"cable de red", "patch cord"},
	"camera":   {"camara", "ip camera"},
	"battery":  {"bateria", "battery pack"},
	"power":    {"fuente de alimentacion", "power supply"},
	"ups":      {"sai", "uninterruptible power supply"},
	"printer":  {"impresora"},
	"monitor":  {"pantalla", "display"},
	"keyboard": {"teclado"},
	"managed":  {"gestionado", "administered"},
	"wireless": {"inalambrico", "wifi"},
	"license":  {"licencia", "subscription"},
}

// TermExpansionService expands a record's identity terms into bilingual
// search synonyms. It implements providers.SynonymExpander.
type TermExpansionService struct {
	terms map[string][]string
	mu    sync.RWMutex
}

// NewTermExpansionService creates the expander. configPath is optional; when
// set, the JSON file's mappings are merged over the built-in table.
func NewTermExpansionService(configPath string) (*TermExpansionService, error) {
	s := &TermExpansionService{
		terms: make(map[string][]string, len(defaultTerms)),
	}
	for k, v := range defaultTerms {
		s.terms[strings.ToLower(k)] = v
	}
	if configPath != "" {
		if err := s.loadConfig(configPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// loadConfig loads term mappings from a JSON file
func (s *TermExpansionService) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var mappings map[string][]string
	if err := json.Unmarshal(data, &mappings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Normalize keys to lowercase for consistent lookup
	for k, v := range mappings {
		s.terms[strings.ToLower(k)] = v
	}
	return nil
}

// GenerateSynonyms expands the record's name and classification tokens into
// a deduplicated synonym list. The original tokens are not included; they
// are already indexable from the identity fields.
func (s *TermExpansionService) GenerateSynonyms(ctx context.Context, record *entities.SourceRecord) ([]string, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(record.Name + " " + record.Classification))
	if query == "" {
		return []string{}, nil
	}

	rawTerms := strings.Fields(query)

	var expanded []string
	seen := make(map[string]bool)

	for _, term := range rawTerms {
		term = strings.Trim(term, ",.;:()")
		if synonyms, ok := s.terms[term]; ok {
			for _, syn := range synonyms {
				if !seen[syn] {
					expanded = append(expanded, syn)
					seen[syn] = true
				}
			}
		}
	}

	return expanded, nil
}
