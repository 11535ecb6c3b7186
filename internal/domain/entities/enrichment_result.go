package entities

// Quality buckets derived from the numeric quality score.
const (
	QualityBucketHigh   = "high"
	QualityBucketMedium = "medium"
	QualityBucketLow    = "low"
)

// BucketForScore maps a quality score onto its coarse bucket.
func BucketForScore(score int) string {
	switch {
	case score >= 80:
		return QualityBucketHigh
	case score >= 50:
		return QualityBucketMedium
	default:
		return QualityBucketLow
	}
}

// IdentitySection carries the canonical identity plus rule-derived hints.
type IdentitySection struct {
	PartNumber       string   `json:"part_number"`
	Manufacturer     string   `json:"manufacturer"`
	Name             string   `json:"name"`
	RuleTags         []string `json:"rule_tags"`
	BundleCandidates []string `json:"bundle_candidates"`
	Synonyms         []string `json:"synonyms"`
}

// MarketingSection carries generated marketing copy.
type MarketingSection struct {
	ShortDescription string   `json:"short_description"`
	ValueStatement   string   `json:"value_statement"`
	BenefitBullets   []string `json:"benefit_bullets"`
	UseCases         []string `json:"use_cases"`
	Provider         string   `json:"provider,omitempty"`
}

// SpecsSection carries extracted technical content.
type SpecsSection struct {
	Features   []string          `json:"features"`
	SpecsTable map[string]string `json:"specs_table"`
	StageMeta  map[string]string `json:"stage_meta,omitempty"`
}

// ComplianceSection carries compliance tags and a discrete risk score.
type ComplianceSection struct {
	Tags      []string `json:"tags"`
	RiskScore int      `json:"risk_score"`
}

// EmbeddingsSection is a placeholder for a future embedding stage. The
// reference is always nil today.
type EmbeddingsSection struct {
	Reference *string `json:"reference"`
}

// Sections is the fixed five-part shape of an assembled result.
type Sections struct {
	Identity   IdentitySection   `json:"identity"`
	Marketing  MarketingSection  `json:"marketing"`
	Specs      SpecsSection      `json:"specs"`
	Compliance ComplianceSection `json:"compliance"`
	Embeddings EmbeddingsSection `json:"embeddings"`
}

// EnrichmentResult is the output of one pipeline run.
type EnrichmentResult struct {
	Hash          string           `json:"hash"`
	Version       string           `json:"version"`
	Sections      Sections         `json:"sections"`
	QualityScore  int              `json:"quality_score"`
	QualityBucket string           `json:"quality_bucket"`
	Warnings      []string         `json:"warnings"`
	Errors        []string         `json:"errors"`
	Timings       map[string]int64 `json:"timings"`
	DurationMs    int64            `json:"duration_ms"`
	Partial       bool             `json:"partial,omitempty"`
	StagesUpdated []string         `json:"stages_updated,omitempty"`
}
