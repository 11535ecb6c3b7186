package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
	"github.com/partdesk/catalog-enrichment/pkg/config"
)

type stubProvider struct {
	name    string
	calls   int
	err     error
	cls     *entities.ClassificationResult
	content *entities.ContentResult
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Classify(ctx context.Context, record *entities.SourceRecord) (*entities.ClassificationResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.cls != nil {
		return p.cls, nil
	}
	return &entities.ClassificationResult{Category: "networking", Confidence: 0.95, Provider: p.name}, nil
}

func (p *stubProvider) GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) (*entities.ContentResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.content != nil {
		return p.content, nil
	}
	return &entities.ContentResult{ValueStatement: "stub copy", Provider: p.name}, nil
}

func testAIConfig() *config.AIConfig {
	return &config.AIConfig{
		CacheMaxEntries:  16,
		CacheTTL:         time.Hour,
		BreakerThreshold: 3,
		BreakerCooldown:  5 * time.Minute,
	}
}

func switchRecord() *entities.SourceRecord {
	return &entities.SourceRecord{
		PartNumber:   "SW-24",
		Name:         "Managed Switch 24-Port",
		Manufacturer: "NetPro",
		Description:  "Layer2/Layer3 managed switch",
	}
}

func TestGateway_OfflineUsesFallback(t *testing.T) {
	cfg := testAIConfig()
	cfg.Offline = true
	p := &stubProvider{name: "openai"}
	g := NewGateway(cfg, "v1.0.0", []providers.CompletionProvider{p}, WithClock(newFakeClock()))

	cls := g.Classify(context.Background(), switchRecord())
	require.NotNil(t, cls)
	assert.Equal(t, "fallback", cls.Provider)
	assert.Equal(t, "networking", cls.Category)
	assert.Zero(t, p.calls, "offline mode must bypass all provider calls")

	content := g.GenerateContent(context.Background(), "copy", switchRecord())
	assert.Equal(t, "fallback", content.Provider)
	assert.NotEmpty(t, content.ValueStatement)
	assert.Zero(t, p.calls)
}

func TestGateway_SecondCallIsCached(t *testing.T) {
	p := &stubProvider{name: "openai"}
	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{p}, WithClock(newFakeClock()))

	first := g.Classify(context.Background(), switchRecord())
	assert.False(t, first.Cached)
	assert.Equal(t, 1, p.calls)

	second := g.Classify(context.Background(), switchRecord())
	assert.True(t, second.Cached)
	assert.Equal(t, "openai", second.Provider)
	assert.Equal(t, 1, p.calls, "second identical call must not reach the provider")
}

func TestGateway_ProviderOrderAndFallthrough(t *testing.T) {
	failing := &stubProvider{name: "openai", err: errors.New("timeout")}
	healthy := &stubProvider{name: "anthropic"}
	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{failing, healthy}, WithClock(newFakeClock()))

	cls := g.Classify(context.Background(), switchRecord())
	assert.Equal(t, "anthropic", cls.Provider)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)
}

func TestGateway_AllProvidersFailUsesFallback(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("timeout")}
	b := &stubProvider{name: "anthropic", err: errors.New("quota")}
	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{a, b}, WithClock(newFakeClock()))

	cls := g.Classify(context.Background(), switchRecord())
	assert.Equal(t, "fallback", cls.Provider)
}

func TestGateway_BreakerSkipsDisabledProvider(t *testing.T) {
	clock := newFakeClock()
	failing := &stubProvider{name: "openai", err: authErr()}
	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{failing}, WithClock(clock))

	// Three distinct records so the cache never absorbs the calls.
	recs := []*entities.SourceRecord{
		{PartNumber: "A-1", Name: "Router"},
		{PartNumber: "A-2", Name: "Camera"},
		{PartNumber: "A-3", Name: "Server"},
	}
	for _, r := range recs {
		g.Classify(context.Background(), r)
	}
	assert.Equal(t, 3, failing.calls)

	// Breaker is now open: the provider must be skipped entirely.
	g.Classify(context.Background(), &entities.SourceRecord{PartNumber: "A-4", Name: "Cable"})
	assert.Equal(t, 3, failing.calls, "disabled provider must not be called during cooldown")

	clock.Advance(5*time.Minute + time.Second)
	g.Classify(context.Background(), &entities.SourceRecord{PartNumber: "A-5", Name: "Firewall"})
	assert.Equal(t, 4, failing.calls, "provider must be eligible again after cooldown")
}

func TestGateway_SnapshotPersistsCache(t *testing.T) {
	store := &memorySnapshotStore{}
	clock := newFakeClock()
	p := &stubProvider{name: "openai"}

	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{p}, WithClock(clock), WithSnapshotStore(store))
	g.Classify(context.Background(), switchRecord())
	require.NoError(t, g.SaveSnapshot())

	reborn := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{p}, WithClock(clock), WithSnapshotStore(store))
	cls := reborn.Classify(context.Background(), switchRecord())
	assert.True(t, cls.Cached, "warm-started cache should serve the first call")
	assert.Equal(t, 1, p.calls)
}

func TestGateway_VersionBumpInvalidatesCache(t *testing.T) {
	store := &memorySnapshotStore{}
	clock := newFakeClock()
	p := &stubProvider{name: "openai"}

	g := NewGateway(testAIConfig(), "v1.0.0", []providers.CompletionProvider{p}, WithClock(clock), WithSnapshotStore(store))
	g.Classify(context.Background(), switchRecord())
	require.NoError(t, g.SaveSnapshot())
	require.Equal(t, 1, p.calls)

	// A version-bumped process warm-starts from the same snapshot but must
	// not serve payloads produced under the previous engine version.
	bumped := NewGateway(testAIConfig(), "v2.0.0", []providers.CompletionProvider{p}, WithClock(clock), WithSnapshotStore(store))
	cls := bumped.Classify(context.Background(), switchRecord())
	assert.False(t, cls.Cached, "old-version cache entries must not hit")
	assert.Equal(t, 2, p.calls, "bumped engine must go back to the provider")
}

type memorySnapshotStore struct {
	data []byte
}

func (s *memorySnapshotStore) Save(data []byte) error {
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *memorySnapshotStore) Load() ([]byte, error) {
	if s.data == nil {
		return nil, errors.New("no snapshot")
	}
	return s.data, nil
}

func TestFallback_Deterministic(t *testing.T) {
	f := &ruleFallback{}
	a := f.Classify(switchRecord())
	b := f.Classify(switchRecord())
	assert.Equal(t, a, b)

	general := f.Classify(&entities.SourceRecord{PartNumber: "X", Name: "Mystery Item"})
	assert.Equal(t, "general", general.Category)
	assert.False(t, general.AutoApprove)
}

func TestSignature_DependsOnIdentityFields(t *testing.T) {
	a := signature(switchRecord())
	r := switchRecord()
	r.PartNumber = "SW-48"
	b := signature(r)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 8)
}
