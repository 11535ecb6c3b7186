package ai

import (
	"fmt"
	"strings"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

const fallbackProvider = "fallback"

// fallbackRule is one keyword-driven classification rule.
type fallbackRule struct {
	keywords     []string
	category     string
	subCategory  string
	resultTags   []string
	leadTimeDays int
}

// Rules are checked in order, first match wins. The catch-all general rule
// stays last.
var fallbackRules = []fallbackRule{
	{
		keywords:     []string{"switch", "router", "firewall", "access point", "gateway"},
		category:     "networking",
		subCategory:  "network-infrastructure",
		resultTags:   []string{"network", "infrastructure", "managed"},
		leadTimeDays: 5,
	},
	{
		keywords:     []string{"server", "rack", "blade", "chassis"},
		category:     "compute",
		subCategory:  "servers",
		resultTags:   []string{"server", "datacenter", "compute"},
		leadTimeDays: 10,
	},
	{
		keywords:     []string{"cable", "patch", "fiber", "connector", "adapter"},
		category:     "connectivity",
		subCategory:  "cabling",
		resultTags:   []string{"cable", "connectivity", "accessory"},
		leadTimeDays: 2,
	},
	{
		keywords:     []string{"camera", "nvr", "surveillance", "sensor"},
		category:     "security",
		subCategory:  "surveillance",
		resultTags:   []string{"security", "camera", "monitoring"},
		leadTimeDays: 7,
	},
	{
		keywords:     []string{"ups", "battery", "power supply", "psu", "inverter"},
		category:     "power",
		subCategory:  "power-protection",
		resultTags:   []string{"power", "battery", "protection"},
		leadTimeDays: 7,
	},
	{
		keywords:     []string{"license", "subscription", "software", "support"},
		category:     "software",
		subCategory:  "licensing",
		resultTags:   []string{"software", "license", "digital"},
		leadTimeDays: 1,
	},
}

// ruleFallback is the deterministic generator used when every provider is
// disabled or unavailable. It never fails.
type ruleFallback struct{}

func (f *ruleFallback) match(record *entities.SourceRecord) fallbackRule {
	haystack := strings.ToLower(record.Name + " " + record.Manufacturer + " " + record.Classification)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule
			}
		}
	}
	return fallbackRule{
		category:     "general",
		subCategory:  "uncategorized",
		resultTags:   []string{"general"},
		leadTimeDays: 14,
	}
}

// Classify produces a deterministic keyword-derived classification.
func (f *ruleFallback) Classify(record *entities.SourceRecord) *entities.ClassificationResult {
	rule := f.match(record)
	return &entities.ClassificationResult{
		Category:       rule.category,
		SubCategory:    rule.subCategory,
		Classification: rule.category + "/" + rule.subCategory,
		AutoApprove:    false,
		Confidence:     0.5,
		Keywords:       rule.resultTags,
		LeadTimeDays:   rule.leadTimeDays,
		Reasoning:      "keyword rule match",
		Provider:       fallbackProvider,
	}
}

// GenerateContent produces deterministic template-based marketing copy.
func (f *ruleFallback) GenerateContent(record *entities.SourceRecord) *entities.ContentResult {
	rule := f.match(record)

	name := record.Name
	if name == "" {
		name = record.PartNumber
	}

	short := fmt.Sprintf("%s from %s.", name, orUnknown(record.Manufacturer))
	if record.Description != "" {
		short = fmt.Sprintf("%s %s", name, firstSentence(record.Description))
	}

	bullets := []string{
		fmt.Sprintf("Genuine %s part %s", orUnknown(record.Manufacturer), record.PartNumber),
	}
	for _, tag := range rule.resultTags {
		bullets = append(bullets, fmt.Sprintf("Suited for %s deployments", tag))
	}

	return &entities.ContentResult{
		ShortDescription: short,
		ValueStatement:   fmt.Sprintf("%s is a %s product for %s environments.", name, rule.category, rule.subCategory),
		BenefitBullets:   bullets,
		UseCases:         []string{rule.category + " installations", rule.subCategory + " upgrades"},
		Provider:         fallbackProvider,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "the manufacturer"
	}
	return s
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}
