package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// Stage names, in fixed pipeline order.
const (
	StageExtract    = "stage1_extract"
	StageMarketing  = "stage2_marketing"
	StageCompliance = "stage3_compliance"
	StageEmbeddings = "stage4_embeddings"
)

// stage is one pipeline step. Each stage writes only its own sections so
// partial re-runs can merge over a previous assembly without clobbering
// untouched output.
type stage struct {
	name string
	run  func(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections) error
}

type extractionRule struct {
	keywords []string
	features []string
	specs    map[string]string
}

var extractionRules = []extractionRule{
	{
		keywords: []string{"switch"},
		features: []string{"Managed network switching", "VLAN segmentation support", "Remote network management interface"},
		specs:    map[string]string{"type": "network switch"},
	},
	{
		keywords: []string{"router", "gateway"},
		features: []string{"WAN routing", "Firewall rule support", "Remote network management interface"},
		specs:    map[string]string{"type": "router"},
	},
	{
		keywords: []string{"firewall"},
		features: []string{"Stateful packet inspection", "VPN termination", "Threat filtering"},
		specs:    map[string]string{"type": "firewall"},
	},
	{
		keywords: []string{"server", "blade"},
		features: []string{"Rack-mountable chassis", "Redundant power option", "Out-of-band management"},
		specs:    map[string]string{"type": "server"},
	},
	{
		keywords: []string{"camera", "nvr"},
		features: []string{"Video surveillance", "Night vision support", "Motion detection"},
		specs:    map[string]string{"type": "camera"},
	},
	{
		keywords: []string{"ups", "battery"},
		features: []string{"Battery backup runtime", "Surge protection", "Automatic voltage regulation"},
		specs:    map[string]string{"type": "ups"},
	},
	{
		keywords: []string{"cable", "patch", "fiber"},
		features: []string{"Shielded construction", "Snagless connectors"},
		specs:    map[string]string{"type": "cable"},
	},
	{
		keywords: []string{"access point", "wireless", "wifi"},
		features: []string{"Wireless coverage", "Multi-SSID support", "Remote network management interface"},
		specs:    map[string]string{"type": "access point"},
	},
}

var (
	portCountRe = regexp.MustCompile(`(?i)(\d+)[\s-]?port`)
	poeRe       = regexp.MustCompile(`(?i)\bpoe\+?\b`)
	rackUnitRe  = regexp.MustCompile(`(?i)\b(\d+)U\b`)
)

// stageExtract derives coarse features, a specs table and a short
// description from keyword matches on the name and category hint.
func (s *EnrichmentService) stageExtract(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections) error {
	_ = ctx

	haystack := strings.ToLower(record.Name + " " + record.Classification)

	features := []string{}
	specs := map[string]string{}
	matched := []string{}

	for _, rule := range extractionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				features = append(features, rule.features...)
				for k, v := range rule.specs {
					if _, ok := specs[k]; !ok {
						specs[k] = v
					}
				}
				matched = append(matched, kw)
				break
			}
		}
	}

	if m := portCountRe.FindStringSubmatch(record.Name); m != nil {
		specs["ports"] = m[1]
	}
	if poeRe.MatchString(record.Name) {
		specs["poe"] = "yes"
	}
	if m := rackUnitRe.FindStringSubmatch(record.Name); m != nil {
		specs["rack_units"] = m[1]
	}

	features = dedupe(features)

	sections.Specs.Features = features
	sections.Specs.SpecsTable = specs
	sections.Specs.StageMeta = map[string]string{
		"matched_keywords": strings.Join(matched, ","),
	}

	if sections.Marketing.ShortDescription == "" {
		sections.Marketing.ShortDescription = shortDescriptionFor(record)
	}

	return nil
}

func shortDescriptionFor(record *entities.SourceRecord) string {
	if record.Description != "" {
		desc := record.Description
		if i := strings.IndexAny(desc, ".!?"); i >= 0 {
			desc = desc[:i+1]
		}
		return desc
	}
	if record.Manufacturer != "" {
		return fmt.Sprintf("%s by %s.", record.Name, record.Manufacturer)
	}
	return record.Name
}

// stageMarketing derives a value statement and benefit bullets via the AI
// gateway. Writes only the marketing section.
func (s *EnrichmentService) stageMarketing(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections) error {
	cls := s.classifyMemoized(ctx, record)

	content := s.gateway.GenerateContent(ctx, "Write catalog marketing copy for this product.", record)

	if content.ShortDescription != "" {
		sections.Marketing.ShortDescription = content.ShortDescription
	}
	sections.Marketing.ValueStatement = content.ValueStatement
	sections.Marketing.BenefitBullets = content.BenefitBullets
	sections.Marketing.UseCases = content.UseCases
	sections.Marketing.Provider = content.Provider

	if len(sections.Marketing.UseCases) == 0 && cls != nil && len(cls.Keywords) > 0 {
		uses := make([]string, 0, len(cls.Keywords))
		for _, kw := range cls.Keywords {
			uses = append(uses, kw+" applications")
		}
		sections.Marketing.UseCases = uses
	}

	return nil
}

type complianceRule struct {
	keywords []string
	tags     []string
	risk     int
}

// Risk scores fall in a small discrete band set: 10, 30, 60, 85.
var complianceRules = []complianceRule{
	{keywords: []string{"chemical", "aerosol", "solvent"}, tags: []string{"REACH", "GHS"}, risk: 85},
	{keywords: []string{"battery", "lithium", "ups"}, tags: []string{"UN38.3", "UL"}, risk: 60},
	{keywords: []string{"laser"}, tags: []string{"IEC-60825"}, risk: 60},
	{keywords: []string{"wireless", "wifi", "radio", "access point"}, tags: []string{"FCC", "CE-RED"}, risk: 30},
	{keywords: []string{"power", "psu", "inverter"}, tags: []string{"UL", "IEC-62368"}, risk: 30},
}

// stageCompliance derives compliance tags and a banded risk score from
// keyword matches.
func (s *EnrichmentService) stageCompliance(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections) error {
	_ = ctx

	haystack := strings.ToLower(record.Name + " " + record.Description + " " + record.Classification)

	tags := []string{}
	risk := 10 // baseline band for general electronics

	for _, rule := range complianceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				tags = append(tags, rule.tags...)
				if rule.risk > risk {
					risk = rule.risk
				}
				break
			}
		}
	}

	tags = append(tags, "CE", "RoHS")
	sections.Compliance.Tags = dedupe(tags)
	sections.Compliance.RiskScore = risk

	return nil
}

// stageEmbeddings is a placeholder for a future embedding stage. It keeps
// stage selection, timing and partial re-runs uniform while always producing
// a null reference.
func (s *EnrichmentService) stageEmbeddings(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections) error {
	_ = ctx
	_ = record
	sections.Embeddings.Reference = nil
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}
