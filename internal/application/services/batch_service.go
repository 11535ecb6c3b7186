package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

// BatchService drives the orchestrator over a queue of records under a
// bounded worker pool. Records are independent; only the gateway cache and
// breaker state are shared, and those guard themselves.
type BatchService struct {
	enricher   *EnrichmentService
	workers    int
	webhookURL string
	httpClient *http.Client
}

// NewBatchService creates the batch driver. workers defaults to 3.
func NewBatchService(enricher *EnrichmentService, workers int, webhookURL string) *BatchService {
	if workers <= 0 {
		workers = 3
	}
	return &BatchService{
		enricher:   enricher,
		workers:    workers,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Run processes every record to completion and reports a summary. A batch
// always completes; per-record failures are counted, never propagated.
func (s *BatchService) Run(ctx context.Context, records []*entities.SourceRecord) *entities.BatchSummary {
	start := time.Now()
	s.enricher.ResetRunCache()

	var enriched, skipped, failed int64

	recordChan := make(chan *entities.SourceRecord, s.workers)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range recordChan {
				outcome := s.enricher.Enrich(ctx, record)
				switch outcome.Status {
				case OutcomeSkipped:
					atomic.AddInt64(&skipped, 1)
				case OutcomeFailed:
					atomic.AddInt64(&failed, 1)
					log.Warn().Str("part_number", record.PartNumber).Msg("record enrichment failed")
				default:
					atomic.AddInt64(&enriched, 1)
				}
			}
		}()
	}

	for _, record := range records {
		select {
		case recordChan <- record:
		case <-ctx.Done():
			// Drain point: stop feeding, let in-flight items finish.
			close(recordChan)
			wg.Wait()
			return s.summarize(records, enriched, skipped, failed, start)
		}
	}

	close(recordChan)
	wg.Wait()

	summary := s.summarize(records, enriched, skipped, failed, start)
	s.postSummary(ctx, summary)
	return summary
}

func (s *BatchService) summarize(records []*entities.SourceRecord, enriched, skipped, failed int64, start time.Time) *entities.BatchSummary {
	return &entities.BatchSummary{
		Total:           len(records),
		Enriched:        int(enriched),
		Skipped:         int(skipped),
		Failed:          int(failed),
		Version:         s.enricher.Version(),
		DurationMsTotal: time.Since(start).Milliseconds(),
	}
}

// postSummary POSTs the summary JSON to the configured webhook. Best-effort.
func (s *BatchService) postSummary(ctx context.Context, summary *entities.BatchSummary) {
	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("batch webhook request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", s.webhookURL).Msg("batch webhook post failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("url", s.webhookURL).Msg("batch webhook rejected summary")
	}
}
