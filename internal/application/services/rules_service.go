package services

import (
	"context"
	"strings"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
)

// bonusRule is one keyword-driven business rule.
type bonusRule struct {
	keywords []string
	tags     []string
	bundles  []string
	bonus    int
}

var bonusRules = []bonusRule{
	{
		keywords: []string{"switch", "router"},
		tags:     []string{"core-network"},
		bundles:  []string{"rack mount kit", "patch cables"},
		bonus:    5,
	},
	{
		keywords: []string{"server"},
		tags:     []string{"datacenter"},
		bundles:  []string{"rail kit", "redundant psu"},
		bonus:    5,
	},
	{
		keywords: []string{"camera", "nvr"},
		tags:     []string{"surveillance"},
		bundles:  []string{"poe injector", "mounting bracket"},
		bonus:    3,
	},
	{
		keywords: []string{"ups", "battery"},
		tags:     []string{"power-continuity"},
		bundles:  []string{"replacement battery", "network management card"},
		bonus:    3,
	},
}

// RulesService resolves business-rule tags, bundle suggestions and a quality
// bonus for a record. It implements providers.RulesResolver. Best-effort by
// contract; this implementation never fails.
type RulesService struct{}

// NewRulesService creates a new rules resolver.
func NewRulesService() *RulesService {
	return &RulesService{}
}

// Resolve matches the record against the rule table.
func (s *RulesService) Resolve(ctx context.Context, record *entities.SourceRecord) (*providers.RulesBonus, error) {
	_ = ctx

	haystack := strings.ToLower(record.Name + " " + record.Classification)
	result := &providers.RulesBonus{}

	for _, rule := range bonusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				result.Tags = append(result.Tags, rule.tags...)
				result.Bundles = append(result.Bundles, rule.bundles...)
				result.QualityBonus += rule.bonus
				break
			}
		}
	}

	return result, nil
}
