package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
	"github.com/partdesk/catalog-enrichment/pkg/config"
	"github.com/partdesk/catalog-enrichment/pkg/hashing"
)

// AIGateway is the completion façade consumed by the marketing stage.
type AIGateway interface {
	Classify(ctx context.Context, record *entities.SourceRecord) *entities.ClassificationResult
	GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) *entities.ContentResult
}

// ItemStore is the storage façade consumed by the orchestrator.
type ItemStore interface {
	GetByHash(ctx context.Context, hash string) *entities.StoredItem
	SaveItem(ctx context.Context, item *entities.StoredItem)
	Log(ctx context.Context, entry *entities.LogEntry)
}

// Outcome statuses reported per record.
const (
	OutcomeEnriched = "enriched"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// EnrichOutcome is the per-record result of one orchestrator call.
type EnrichOutcome struct {
	Result *entities.EnrichmentResult
	Status string
}

// EnrichmentService is the pipeline orchestrator. Its public methods never
// fail for recoverable conditions; stage, provider and storage failures all
// become structured fields on the returned result.
type EnrichmentService struct {
	gateway  AIGateway
	store    ItemStore
	synonyms providers.SynonymExpander
	rules    providers.RulesResolver
	version  string
	stages   config.StageConfig
	dryRun   bool

	// Per-run classification memo keyed by content hash, so duplicate
	// records inside one batch cost a single classify call.
	memoMu sync.Mutex
	memo   map[string]*entities.ClassificationResult
}

// NewEnrichmentService creates the orchestrator.
func NewEnrichmentService(
	gateway AIGateway,
	store ItemStore,
	synonyms providers.SynonymExpander,
	rules providers.RulesResolver,
	engineCfg config.EngineConfig,
	stagesCfg config.StageConfig,
) *EnrichmentService {
	return &EnrichmentService{
		gateway:  gateway,
		store:    store,
		synonyms: synonyms,
		rules:    rules,
		version:  engineCfg.Version,
		stages:   stagesCfg,
		dryRun:   engineCfg.DryRun,
		memo:     make(map[string]*entities.ClassificationResult),
	}
}

// Version returns the engine/content-contract version.
func (s *EnrichmentService) Version() string {
	return s.version
}

// ResetRunCache clears the per-run classification memo. The batch driver
// calls this at the start of each run.
func (s *EnrichmentService) ResetRunCache() {
	s.memoMu.Lock()
	s.memo = make(map[string]*entities.ClassificationResult)
	s.memoMu.Unlock()
}

// pipeline is the fixed-order dispatch table of enabled stages.
func (s *EnrichmentService) pipeline() []stage {
	all := []struct {
		name    string
		enabled bool
		run     func(context.Context, *entities.SourceRecord, *entities.Sections) error
	}{
		{StageExtract, s.stages.Extract, s.stageExtract},
		{StageMarketing, s.stages.Marketing, s.stageMarketing},
		{StageCompliance, s.stages.Compliance, s.stageCompliance},
		{StageEmbeddings, s.stages.Embeddings, s.stageEmbeddings},
	}

	stages := make([]stage, 0, len(all))
	for _, st := range all {
		if st.enabled {
			stages = append(stages, stage{name: st.name, run: st.run})
		}
	}
	return stages
}

// Enrich runs a record through the full pipeline. An unchanged record whose
// stored aiVersion matches the engine version is skipped.
func (s *EnrichmentService) Enrich(ctx context.Context, record *entities.SourceRecord) *EnrichOutcome {
	start := time.Now()

	result := &entities.EnrichmentResult{
		Version:  s.version,
		Warnings: []string{},
		Errors:   []string{},
		Timings:  map[string]int64{},
	}

	if !record.Valid() {
		result.Errors = append(result.Errors, "record:missing part number and name")
		result.QualityBucket = entities.QualityBucketLow
		result.DurationMs = time.Since(start).Milliseconds()
		s.logRun(ctx, "", entities.StatusFailed, result)
		return &EnrichOutcome{Result: result, Status: OutcomeFailed}
	}

	hash := hashing.ContentHash(record.PartNumber, record.Name, record.Manufacturer, record.Description)
	result.Hash = hash

	existing := s.store.GetByHash(ctx, hash)
	if existing != nil && existing.AIVersion == s.version && existing.Enriched != nil {
		return &EnrichOutcome{Result: existing.Enriched, Status: OutcomeSkipped}
	}

	sections := &entities.Sections{}
	ran := 0
	for _, st := range s.pipeline() {
		s.runStage(ctx, st, record, sections, result)
		ran++
	}

	bonus := s.assemble(ctx, record, sections, result)

	if len(sections.Specs.Features) == 0 {
		result.Warnings = append(result.Warnings, "no_features_extracted")
	}

	result.Sections = *sections
	result.QualityScore, result.QualityBucket = ComputeQualityScore(sections, bonus)
	result.DurationMs = time.Since(start).Milliseconds()

	status := entities.StatusEnriched
	outcome := OutcomeEnriched
	if ran > 0 && len(result.Errors) >= ran {
		status = entities.StatusFailed
		outcome = OutcomeFailed
	}

	itemID := s.persist(ctx, record, result, hash)
	s.logRun(ctx, itemID, status, result)

	return &EnrichOutcome{Result: result, Status: outcome}
}

// ReEnrichPartial re-runs only the named stages, merging their output over
// the previous result. Sections owned by stages not re-run are reused
// verbatim.
func (s *EnrichmentService) ReEnrichPartial(ctx context.Context, record *entities.SourceRecord, existing *entities.EnrichmentResult, stageNames []string) *EnrichOutcome {
	start := time.Now()

	result := &entities.EnrichmentResult{
		Hash:          existing.Hash,
		Version:       s.version,
		Sections:      existing.Sections,
		Warnings:      []string{},
		Errors:        []string{},
		Timings:       map[string]int64{},
		Partial:       true,
		StagesUpdated: stageNames,
	}
	for name, ms := range existing.Timings {
		result.Timings[name] = ms
	}

	requested := make(map[string]bool, len(stageNames))
	for _, name := range stageNames {
		requested[name] = true
	}

	sections := result.Sections
	ran := 0
	for _, st := range s.pipeline() {
		if !requested[st.name] {
			continue
		}
		s.runStage(ctx, st, record, &sections, result)
		ran++
	}

	if ran == 0 {
		result.Warnings = append(result.Warnings, "no_stages_selected")
	}

	result.Sections = sections

	bonus := 0
	if s.rules != nil {
		if rb, err := s.rules.Resolve(ctx, record); err == nil && rb != nil {
			bonus = rb.QualityBonus
		}
	}
	result.QualityScore, result.QualityBucket = ComputeQualityScore(&sections, bonus)
	result.DurationMs = time.Since(start).Milliseconds()

	itemID := s.persist(ctx, record, result, existing.Hash)
	s.logRun(ctx, itemID, entities.StatusPartial, result)

	return &EnrichOutcome{Result: result, Status: OutcomeEnriched}
}

// runStage executes one stage, capturing panics and errors as result entries
// tagged with the stage name. Timing is recorded regardless of success.
func (s *EnrichmentService) runStage(ctx context.Context, st stage, record *entities.SourceRecord, sections *entities.Sections, result *entities.EnrichmentResult) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return st.run(ctx, record, sections)
	}()

	result.Timings[st.name] = time.Since(start).Milliseconds()

	if err != nil {
		result.Errors = append(result.Errors, st.name+":"+err.Error())
		log.Warn().Err(err).Str("stage", st.name).Str("part_number", record.PartNumber).Msg("stage failed")
	}
}

type identityRule struct {
	keywords []string
	tags     []string
	bundles  []string
}

var identityRules = []identityRule{
	{keywords: []string{"switch"}, tags: []string{"networking", "managed-infrastructure"}, bundles: []string{"sfp module", "patch cables"}},
	{keywords: []string{"router", "firewall"}, tags: []string{"networking", "edge"}, bundles: []string{"rack mount kit"}},
	{keywords: []string{"server"}, tags: []string{"compute"}, bundles: []string{"rail kit", "memory upgrade"}},
	{keywords: []string{"camera"}, tags: []string{"security"}, bundles: []string{"poe injector", "mounting bracket"}},
	{keywords: []string{"ups", "battery"}, tags: []string{"power"}, bundles: []string{"replacement battery"}},
	{keywords: []string{"cable", "patch"}, tags: []string{"connectivity"}, bundles: nil},
	{keywords: []string{"access point", "wireless"}, tags: []string{"networking", "wireless"}, bundles: []string{"poe injector"}},
}

// assemble fills the identity section: canonical fields, rule-derived tags
// and bundle candidates from name keywords, and best-effort synonyms. The
// external rules bonus is merged in; its quality bonus is returned.
func (s *EnrichmentService) assemble(ctx context.Context, record *entities.SourceRecord, sections *entities.Sections, result *entities.EnrichmentResult) int {
	sections.Identity.PartNumber = record.PartNumber
	sections.Identity.Manufacturer = record.Manufacturer
	sections.Identity.Name = record.Name

	haystack := strings.ToLower(record.Name)
	tags := []string{}
	bundles := []string{}
	for _, rule := range identityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				tags = append(tags, rule.tags...)
				bundles = append(bundles, rule.bundles...)
				break
			}
		}
	}

	synonyms := []string{}
	if s.synonyms != nil {
		if syns, err := s.synonyms.GenerateSynonyms(ctx, record); err != nil {
			result.Warnings = append(result.Warnings, "synonyms_unavailable")
			log.Warn().Err(err).Str("part_number", record.PartNumber).Msg("synonym expansion failed")
		} else {
			synonyms = syns
		}
	}

	bonus := 0
	if s.rules != nil {
		rb, err := s.rules.Resolve(ctx, record)
		if err != nil {
			result.Warnings = append(result.Warnings, "rules_unavailable")
			log.Warn().Err(err).Str("part_number", record.PartNumber).Msg("rules resolution failed")
		} else if rb != nil {
			tags = append(tags, rb.Tags...)
			bundles = append(bundles, rb.Bundles...)
			bonus = rb.QualityBonus
		}
	}

	sections.Identity.RuleTags = dedupe(tags)
	sections.Identity.BundleCandidates = dedupe(bundles)
	sections.Identity.Synonyms = synonyms

	return bonus
}

func (s *EnrichmentService) classifyMemoized(ctx context.Context, record *entities.SourceRecord) *entities.ClassificationResult {
	hash := hashing.ContentHash(record.PartNumber, record.Name, record.Manufacturer, record.Description)

	s.memoMu.Lock()
	cached, ok := s.memo[hash]
	s.memoMu.Unlock()
	if ok {
		return cached
	}

	cls := s.gateway.Classify(ctx, record)

	s.memoMu.Lock()
	s.memo[hash] = cls
	s.memoMu.Unlock()

	return cls
}

// persist saves the result unless dry-run is active. Returns the item id
// used, or empty on dry runs.
func (s *EnrichmentService) persist(ctx context.Context, record *entities.SourceRecord, result *entities.EnrichmentResult, hash string) string {
	if s.dryRun {
		log.Info().
			Str("part_number", record.PartNumber).
			Str("hash", hash).
			Int("quality_score", result.QualityScore).
			Str("quality_bucket", result.QualityBucket).
			Msg("dry run: skipping persistence")
		return ""
	}

	item := &entities.StoredItem{
		ID:           uuid.New().String(),
		PartNumber:   record.PartNumber,
		Manufacturer: record.Manufacturer,
		Raw:          record,
		Enriched:     result,
		AIVersion:    s.version,
		Hash:         hash,
		UpdatedAt:    time.Now().UTC(),
	}
	s.store.SaveItem(ctx, item)
	return item.ID
}

func (s *EnrichmentService) logRun(ctx context.Context, itemID, status string, result *entities.EnrichmentResult) {
	if s.dryRun {
		return
	}

	var errText *string
	if len(result.Errors) > 0 {
		joined := strings.Join(result.Errors, "; ")
		errText = &joined
	}

	s.store.Log(ctx, &entities.LogEntry{
		ItemID:     itemID,
		Status:     status,
		AIVersion:  s.version,
		DurationMs: result.DurationMs,
		Error:      errText,
		CreatedAt:  time.Now().UTC(),
	})
}
