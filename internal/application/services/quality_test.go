package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

func TestComputeQualityScore_Empty(t *testing.T) {
	score, bucket := ComputeQualityScore(&entities.Sections{}, 0)
	assert.Zero(t, score)
	assert.Equal(t, entities.QualityBucketLow, bucket)
}

func TestComputeQualityScore_FullSectionsClampTo100(t *testing.T) {
	sections := &entities.Sections{
		Identity: entities.IdentitySection{
			PartNumber:       "SW-24",
			Name:             "Managed Switch",
			RuleTags:         []string{"networking"},
			BundleCandidates: []string{"sfp module"},
			Synonyms:         []string{"a", "b", "c", "d"},
		},
		Marketing: entities.MarketingSection{
			ValueStatement: "Great switch.",
			BenefitBullets: []string{"Managed"},
		},
		Specs: entities.SpecsSection{
			Features: []string{"Managed network switching"},
		},
		Compliance: entities.ComplianceSection{
			Tags:      []string{"CE"},
			RiskScore: 10,
		},
	}

	score, bucket := ComputeQualityScore(sections, 20)
	assert.Equal(t, 100, score)
	assert.Equal(t, entities.QualityBucketHigh, bucket)
}

func TestComputeQualityScore_BucketBoundaries(t *testing.T) {
	// name(10) + partNumber(10) + value(15) + features(15) + ruleTag(15) +
	// complianceTag(10) + risk(5) sums to exactly 80.
	high := &entities.Sections{
		Identity:   entities.IdentitySection{Name: "x", PartNumber: "x", RuleTags: []string{"t"}},
		Marketing:  entities.MarketingSection{ValueStatement: "v"},
		Specs:      entities.SpecsSection{Features: []string{"f"}},
		Compliance: entities.ComplianceSection{Tags: []string{"CE"}, RiskScore: 10},
	}
	score, bucket := ComputeQualityScore(high, 0)
	assert.Equal(t, 80, score)
	assert.Equal(t, entities.QualityBucketHigh, bucket)

	// name + partNumber + value + features sums to exactly 50.
	medium := &entities.Sections{
		Identity:  entities.IdentitySection{Name: "x", PartNumber: "x"},
		Marketing: entities.MarketingSection{ValueStatement: "v"},
		Specs:     entities.SpecsSection{Features: []string{"f"}},
	}
	score, bucket = ComputeQualityScore(medium, 0)
	assert.Equal(t, 50, score)
	assert.Equal(t, entities.QualityBucketMedium, bucket)

	// name + partNumber + value + bullets sums to 45, below the medium line.
	low := &entities.Sections{
		Identity:  entities.IdentitySection{Name: "x", PartNumber: "x"},
		Marketing: entities.MarketingSection{ValueStatement: "v", BenefitBullets: []string{"b"}},
	}
	score, bucket = ComputeQualityScore(low, 0)
	assert.Equal(t, 45, score)
	assert.Equal(t, entities.QualityBucketLow, bucket)
}

func TestComputeQualityScore_SynonymThreshold(t *testing.T) {
	three := &entities.Sections{Identity: entities.IdentitySection{Synonyms: []string{"a", "b", "c"}}}
	score, _ := ComputeQualityScore(three, 0)
	assert.Zero(t, score, "fewer than four synonyms score nothing")

	four := &entities.Sections{Identity: entities.IdentitySection{Synonyms: []string{"a", "b", "c", "d"}}}
	score, _ = ComputeQualityScore(four, 0)
	assert.Equal(t, 12, score)
}

func TestComputeQualityScore_NegativeBonusClampsAtZero(t *testing.T) {
	sections := &entities.Sections{Identity: entities.IdentitySection{Name: "x"}}
	score, bucket := ComputeQualityScore(sections, -200)
	assert.Zero(t, score)
	assert.Equal(t, entities.QualityBucketLow, bucket)
}
