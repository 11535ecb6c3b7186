package services

import (
	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// Weighted presence points awarded per assembled section attribute.
const (
	pointsName           = 10
	pointsPartNumber     = 10
	pointsValueStatement = 15
	pointsBenefitBullet  = 10
	pointsFeature        = 15
	pointsComplianceTag  = 10
	pointsRiskScore      = 5
	pointsBundle         = 10
	pointsRuleTag        = 15
	pointsSynonyms       = 12

	synonymsNeeded = 4
)

// ComputeQualityScore runs the weighted presence check over the assembled
// sections. bonus is the external rules bonus; it can push the score above
// the raw weighted sum before clamping and bucketing.
func ComputeQualityScore(sections *entities.Sections, bonus int) (int, string) {
	score := 0

	if sections.Identity.Name != "" {
		score += pointsName
	}
	if sections.Identity.PartNumber != "" {
		score += pointsPartNumber
	}
	if sections.Marketing.ValueStatement != "" {
		score += pointsValueStatement
	}
	if len(sections.Marketing.BenefitBullets) > 0 {
		score += pointsBenefitBullet
	}
	if len(sections.Specs.Features) > 0 {
		score += pointsFeature
	}
	if len(sections.Compliance.Tags) > 0 {
		score += pointsComplianceTag
	}
	if sections.Compliance.RiskScore > 0 {
		score += pointsRiskScore
	}
	if len(sections.Identity.BundleCandidates) > 0 {
		score += pointsBundle
	}
	if len(sections.Identity.RuleTags) > 0 {
		score += pointsRuleTag
	}
	if len(sections.Identity.Synonyms) >= synonymsNeeded {
		score += pointsSynonyms
	}

	score += bonus

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, entities.BucketForScore(score)
}
