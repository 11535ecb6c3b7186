package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/pkg/config"
	"github.com/partdesk/catalog-enrichment/pkg/hashing"
)

type fakeGateway struct {
	mu             sync.Mutex
	classifyCalls  int
	contentCalls   int
	valueStatement string
	panicOnContent bool
}

func (g *fakeGateway) Classify(ctx context.Context, record *entities.SourceRecord) *entities.ClassificationResult {
	g.mu.Lock()
	g.classifyCalls++
	g.mu.Unlock()
	return &entities.ClassificationResult{
		Category:   "networking",
		Confidence: 0.95,
		Keywords:   []string{"network"},
		Provider:   "test",
	}
}

func (g *fakeGateway) GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) *entities.ContentResult {
	g.mu.Lock()
	g.contentCalls++
	panicking := g.panicOnContent
	g.mu.Unlock()
	if panicking {
		panic("provider blew up")
	}
	vs := g.valueStatement
	if vs == "" {
		vs = "Reliable switching for growing networks."
	}
	return &entities.ContentResult{
		ValueStatement: vs,
		BenefitBullets: []string{"Easy central management"},
		Provider:       "test",
	}
}

type memStore struct {
	mu    sync.Mutex
	items map[string]*entities.StoredItem
	logs  []*entities.LogEntry
	saves int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]*entities.StoredItem)}
}

func (m *memStore) GetByHash(ctx context.Context, hash string) *entities.StoredItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[hash]
}

func (m *memStore) SaveItem(ctx context.Context, item *entities.StoredItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Hash] = item
	m.saves++
}

func (m *memStore) Log(ctx context.Context, entry *entities.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
}

func (m *memStore) lastLog() *entities.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.logs) == 0 {
		return nil
	}
	return m.logs[len(m.logs)-1]
}

func allStages() config.StageConfig {
	return config.StageConfig{Extract: true, Marketing: true, Compliance: true}
}

func newTestService(t *testing.T, gw AIGateway, store ItemStore, engine config.EngineConfig, stages config.StageConfig) *EnrichmentService {
	t.Helper()
	synonyms, err := NewTermExpansionService("")
	require.NoError(t, err)
	return NewEnrichmentService(gw, store, synonyms, NewRulesService(), engine, stages)
}

func managedSwitchRecord() *entities.SourceRecord {
	return &entities.SourceRecord{
		PartNumber:   "SW-24",
		Name:         "Managed Switch 24-Port",
		Manufacturer: "NetPro",
		Description:  "Layer 2+ managed gigabit switch with PoE+.",
	}
}

func TestEnrich_FullRun(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	record := managedSwitchRecord()
	outcome := svc.Enrich(context.Background(), record)

	require.Equal(t, OutcomeEnriched, outcome.Status)
	result := outcome.Result

	wantHash := hashing.ContentHash(record.PartNumber, record.Name, record.Manufacturer, record.Description)
	assert.Equal(t, wantHash, result.Hash)
	assert.Equal(t, "v1.0.0", result.Version)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)

	assert.Contains(t, result.Sections.Specs.Features, "Managed network switching")
	assert.Equal(t, "24", result.Sections.Specs.SpecsTable["ports"])
	assert.Equal(t, "yes", result.Sections.Specs.SpecsTable["poe"])
	assert.Contains(t, result.Sections.Compliance.Tags, "CE")
	assert.Contains(t, result.Sections.Compliance.Tags, "RoHS")
	assert.Contains(t, result.Sections.Identity.RuleTags, "networking")
	assert.NotEmpty(t, result.Sections.Identity.BundleCandidates)
	assert.GreaterOrEqual(t, len(result.Sections.Identity.Synonyms), 4)

	assert.Equal(t, 100, result.QualityScore)
	assert.Equal(t, entities.QualityBucketHigh, result.QualityBucket)

	assert.Len(t, result.Timings, 3)
	assert.Contains(t, result.Timings, StageExtract)
	assert.Contains(t, result.Timings, StageMarketing)
	assert.Contains(t, result.Timings, StageCompliance)

	assert.Equal(t, 1, store.saves)
	require.NotNil(t, store.lastLog())
	assert.Equal(t, entities.StatusEnriched, store.lastLog().Status)
}

func TestEnrich_InvalidRecordFails(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	outcome := svc.Enrich(context.Background(), &entities.SourceRecord{Description: "no identity at all"})

	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.NotEmpty(t, outcome.Result.Errors)
	assert.Equal(t, entities.QualityBucketLow, outcome.Result.QualityBucket)
	assert.Zero(t, store.saves)
	require.NotNil(t, store.lastLog())
	assert.Equal(t, entities.StatusFailed, store.lastLog().Status)
}

func TestEnrich_SkipsUnchangedRecord(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	svc := newTestService(t, gw, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	first := svc.Enrich(context.Background(), managedSwitchRecord())
	require.Equal(t, OutcomeEnriched, first.Status)
	callsAfterFirst := gw.classifyCalls + gw.contentCalls

	second := svc.Enrich(context.Background(), managedSwitchRecord())
	assert.Equal(t, OutcomeSkipped, second.Status)
	assert.Equal(t, first.Result.Hash, second.Result.Hash)
	assert.Equal(t, callsAfterFirst, gw.classifyCalls+gw.contentCalls, "skip must not call the gateway")
	assert.Equal(t, 1, store.saves)
}

func TestEnrich_VersionBumpReEnriches(t *testing.T) {
	store := newMemStore()
	v1 := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())
	v2 := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v2.0.0"}, allStages())

	require.Equal(t, OutcomeEnriched, v1.Enrich(context.Background(), managedSwitchRecord()).Status)

	outcome := v2.Enrich(context.Background(), managedSwitchRecord())
	assert.Equal(t, OutcomeEnriched, outcome.Status)
	assert.Equal(t, "v2.0.0", outcome.Result.Version)
	assert.Equal(t, 2, store.saves)
}

func TestEnrich_NoFeaturesWarning(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	outcome := svc.Enrich(context.Background(), &entities.SourceRecord{
		PartNumber: "MW-1",
		Name:       "Mystery Widget",
	})

	require.Equal(t, OutcomeEnriched, outcome.Status)
	assert.Contains(t, outcome.Result.Warnings, "no_features_extracted")
}

func TestEnrich_DryRunSkipsPersistence(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0", DryRun: true}, allStages())

	outcome := svc.Enrich(context.Background(), managedSwitchRecord())

	assert.Equal(t, OutcomeEnriched, outcome.Status)
	assert.Zero(t, store.saves)
	assert.Empty(t, store.logs)
}

func TestEnrich_StagePanicIsContained(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{panicOnContent: true}
	svc := newTestService(t, gw, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	outcome := svc.Enrich(context.Background(), managedSwitchRecord())

	require.Equal(t, OutcomeEnriched, outcome.Status, "one failed stage must not fail the record")
	require.Len(t, outcome.Result.Errors, 1)
	assert.Contains(t, outcome.Result.Errors[0], StageMarketing+":panic")
	assert.Contains(t, outcome.Result.Timings, StageMarketing, "timing is recorded even on panic")
	assert.Contains(t, outcome.Result.Sections.Specs.Features, "Managed network switching")
}

func TestEnrich_DisabledStagesDoNotRun(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	svc := newTestService(t, gw, store, config.EngineConfig{Version: "v1.0.0"}, config.StageConfig{Extract: true})

	outcome := svc.Enrich(context.Background(), managedSwitchRecord())

	require.Equal(t, OutcomeEnriched, outcome.Status)
	assert.Len(t, outcome.Result.Timings, 1)
	assert.Contains(t, outcome.Result.Timings, StageExtract)
	assert.Empty(t, outcome.Result.Sections.Marketing.ValueStatement)
	assert.Zero(t, gw.classifyCalls)
	assert.Zero(t, gw.contentCalls)
}

func TestEnrich_RunCacheMemoizesClassification(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	// Dry run so the idempotency skip never kicks in between calls.
	svc := newTestService(t, gw, store, config.EngineConfig{Version: "v1.0.0", DryRun: true}, allStages())

	svc.Enrich(context.Background(), managedSwitchRecord())
	svc.Enrich(context.Background(), managedSwitchRecord())
	assert.Equal(t, 1, gw.classifyCalls, "identical records share one classification per run")
	assert.Equal(t, 2, gw.contentCalls)

	svc.ResetRunCache()
	svc.Enrich(context.Background(), managedSwitchRecord())
	assert.Equal(t, 2, gw.classifyCalls)
}

func TestReEnrichPartial_MergesOnlyRequestedStages(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{valueStatement: "Original copy."}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	record := managedSwitchRecord()
	full := svc.Enrich(context.Background(), record)
	require.Equal(t, OutcomeEnriched, full.Status)

	specsBefore, err := json.Marshal(full.Result.Sections.Specs)
	require.NoError(t, err)
	complianceBefore, err := json.Marshal(full.Result.Sections.Compliance)
	require.NoError(t, err)

	rerun := newTestService(t, &fakeGateway{valueStatement: "Fresh copy."}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())
	partial := rerun.ReEnrichPartial(context.Background(), record, full.Result, []string{StageMarketing})

	require.Equal(t, OutcomeEnriched, partial.Status)
	result := partial.Result

	assert.True(t, result.Partial)
	assert.Equal(t, []string{StageMarketing}, result.StagesUpdated)
	assert.Equal(t, full.Result.Hash, result.Hash)
	assert.Equal(t, "Fresh copy.", result.Sections.Marketing.ValueStatement)

	specsAfter, err := json.Marshal(result.Sections.Specs)
	require.NoError(t, err)
	complianceAfter, err := json.Marshal(result.Sections.Compliance)
	require.NoError(t, err)
	assert.Equal(t, string(specsBefore), string(specsAfter), "non-rerun sections must carry over verbatim")
	assert.Equal(t, string(complianceBefore), string(complianceAfter))

	assert.Contains(t, result.Timings, StageExtract, "prior timings are retained")
	require.NotNil(t, store.lastLog())
	assert.Equal(t, entities.StatusPartial, store.lastLog().Status)
}

func TestReEnrichPartial_NoStagesSelected(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &fakeGateway{}, store, config.EngineConfig{Version: "v1.0.0"}, allStages())

	record := managedSwitchRecord()
	full := svc.Enrich(context.Background(), record)
	require.Equal(t, OutcomeEnriched, full.Status)

	partial := svc.ReEnrichPartial(context.Background(), record, full.Result, []string{"stage9_nonsense"})
	assert.Contains(t, partial.Result.Warnings, "no_stages_selected")
}
