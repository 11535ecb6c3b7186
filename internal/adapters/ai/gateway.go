package ai

import (
	"context"
	"encoding/json"
	"hash/fnv"

	"github.com/rs/zerolog/log"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/observability"
	"github.com/partdesk/catalog-enrichment/pkg/config"
)

const (
	opClassify = "classify"
	opContent  = "generate_content"
)

// Gateway is the single façade over the interchangeable completion
// providers. It owns the response cache, the per-provider circuit breaker
// and the deterministic rule fallback. Safe for concurrent use across
// batch workers.
type Gateway struct {
	providers []providers.CompletionProvider
	cache     *responseCache
	breaker   *circuitBreaker
	fallback  *ruleFallback
	snapshots providers.SnapshotStore
	offline   bool
	version   string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the wall clock, for tests.
func WithClock(clock Clock) Option {
	return func(g *Gateway) {
		g.cache.clock = clock
		g.breaker.clock = clock
	}
}

// WithSnapshotStore injects cache snapshot persistence.
func WithSnapshotStore(store providers.SnapshotStore) Option {
	return func(g *Gateway) {
		g.snapshots = store
	}
}

// NewGateway builds a gateway over the given providers, in preference order.
// engineVersion scopes every cache key so a version bump never serves
// payloads produced under the previous engine version.
func NewGateway(cfg *config.AIConfig, engineVersion string, completionProviders []providers.CompletionProvider, opts ...Option) *Gateway {
	clock := SystemClock()
	g := &Gateway{
		providers: completionProviders,
		cache:     newResponseCache(cfg.CacheMaxEntries, cfg.CacheTTL, clock),
		breaker:   newCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, clock),
		fallback:  &ruleFallback{},
		offline:   cfg.Offline,
		version:   engineVersion,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.snapshots != nil {
		if data, err := g.snapshots.Load(); err == nil {
			if err := g.cache.Restore(data); err != nil {
				log.Warn().Err(err).Msg("ai gateway: discarding unreadable cache snapshot")
			} else {
				log.Debug().Int("entries", g.cache.Len()).Msg("ai gateway: cache warm-started from snapshot")
			}
		}
	}

	return g
}

// signature derives the gateway cache key from a fixed subset of record
// fields. Distinct from the storage hash: it scopes idempotency to the
// gateway only.
func signature(record *entities.SourceRecord) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(record.PartNumber + "|" + record.Name + "|" + record.Manufacturer + "|" + record.Classification))
	const digits = "0123456789abcdef"
	sum := h.Sum32()
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = digits[sum&0xf]
		sum >>= 4
	}
	return string(out)
}

// Classify categorizes a record, consulting the cache, the providers in
// order, and finally the rule fallback. It never fails for recoverable
// conditions.
func (g *Gateway) Classify(ctx context.Context, record *entities.SourceRecord) *entities.ClassificationResult {
	key := cacheKey{Kind: opClassify, Version: g.version, Signature: signature(record)}

	if payload, provider, ok := g.cache.Get(key); ok {
		var result entities.ClassificationResult
		if err := json.Unmarshal(payload, &result); err == nil {
			observability.RecordCacheHit(ctx, opClassify)
			result.Provider = provider
			result.Cached = true
			return &result
		}
	}

	if !g.offline {
		for _, p := range g.providers {
			if !g.breaker.Allow(p.Name()) {
				continue
			}
			result, err := p.Classify(ctx, record)
			if err != nil {
				g.breaker.RecordFailure(p.Name(), err)
				log.Warn().Err(err).Str("provider", p.Name()).Msg("ai gateway: classify failed")
				continue
			}
			g.breaker.RecordSuccess(p.Name())
			g.store(key, result, result.Provider)
			return result
		}
	}

	observability.RecordFallback(ctx, opClassify)
	result := g.fallback.Classify(record)
	g.store(key, result, result.Provider)
	return result
}

// GenerateContent produces marketing copy with the same resolution order as
// Classify.
func (g *Gateway) GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) *entities.ContentResult {
	key := cacheKey{Kind: opContent, Version: g.version, Signature: signature(record)}

	if payload, provider, ok := g.cache.Get(key); ok {
		var result entities.ContentResult
		if err := json.Unmarshal(payload, &result); err == nil {
			observability.RecordCacheHit(ctx, opContent)
			result.Provider = provider
			result.Cached = true
			return &result
		}
	}

	if !g.offline {
		for _, p := range g.providers {
			if !g.breaker.Allow(p.Name()) {
				continue
			}
			result, err := p.GenerateContent(ctx, prompt, record)
			if err != nil {
				g.breaker.RecordFailure(p.Name(), err)
				log.Warn().Err(err).Str("provider", p.Name()).Msg("ai gateway: content generation failed")
				continue
			}
			g.breaker.RecordSuccess(p.Name())
			g.store(key, result, result.Provider)
			return result
		}
	}

	observability.RecordFallback(ctx, opContent)
	result := g.fallback.GenerateContent(record)
	g.store(key, result, result.Provider)
	return result
}

func (g *Gateway) store(key cacheKey, value any, provider string) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	g.cache.Put(key, payload, provider)
}

// SaveSnapshot persists the cache through the injected snapshot store.
// Called on process exit; best-effort.
func (g *Gateway) SaveSnapshot() error {
	if g.snapshots == nil {
		return nil
	}
	data, err := g.cache.Snapshot()
	if err != nil {
		return err
	}
	return g.snapshots.Save(data)
}

// CacheLen reports the live cache entry count.
func (g *Gateway) CacheLen() int {
	return g.cache.Len()
}
