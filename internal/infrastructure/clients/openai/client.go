package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/observability"
	"github.com/partdesk/catalog-enrichment/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the OpenAI completion provider.
type Client struct {
	apiKey                string
	model                 string
	baseURL               string
	httpClient            *http.Client
	limiter               *tokenBucket
	autoApproveConfidence float64
}

// NewClient creates a new OpenAI client. Obviously malformed keys are
// rejected here so the provider is never considered configured at all.
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg == nil || cfg.OpenAIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if !strings.HasPrefix(cfg.OpenAIKey, "sk-") || len(cfg.OpenAIKey) < 20 {
		return nil, fmt.Errorf("openai api key has invalid format")
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	threshold := cfg.AutoApproveConfidence
	if threshold <= 0 {
		threshold = 0.90
	}

	return &Client{
		apiKey:  cfg.OpenAIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter:               newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		autoApproveConfidence: threshold,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return "openai"
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

type classificationPayload struct {
	Category       string   `json:"category"`
	SubCategory    string   `json:"sub_category"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Keywords       []string `json:"keywords"`
	LeadTimeDays   int      `json:"lead_time_days"`
	Reasoning      string   `json:"reasoning"`
}

type contentPayload struct {
	ShortDescription string   `json:"short_description"`
	ValueStatement   string   `json:"value_statement"`
	BenefitBullets   []string `json:"benefit_bullets"`
	UseCases         []string `json:"use_cases"`
}

// Classify categorizes a catalog record.
func (c *Client) Classify(ctx context.Context, record *entities.SourceRecord) (*entities.ClassificationResult, error) {
	if record == nil {
		return nil, errors.New("record is required")
	}

	text, err := c.complete(ctx, "classify", classifySystemPrompt, buildClassifyUserPrompt(record))
	if err != nil {
		return nil, err
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse openai classification: %w", err)
	}

	return &entities.ClassificationResult{
		Category:       payload.Category,
		SubCategory:    payload.SubCategory,
		Classification: payload.Classification,
		AutoApprove:    payload.Confidence >= c.autoApproveConfidence,
		Confidence:     payload.Confidence,
		Keywords:       payload.Keywords,
		LeadTimeDays:   payload.LeadTimeDays,
		Reasoning:      payload.Reasoning,
		Provider:       c.Name(),
	}, nil
}

// GenerateContent produces marketing copy for a catalog record.
func (c *Client) GenerateContent(ctx context.Context, prompt string, record *entities.SourceRecord) (*entities.ContentResult, error) {
	if record == nil {
		return nil, errors.New("record is required")
	}

	text, err := c.complete(ctx, "generate_content", contentSystemPrompt, buildContentUserPrompt(prompt, record))
	if err != nil {
		return nil, err
	}

	var payload contentPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse openai content: %w", err)
	}

	return &entities.ContentResult{
		ShortDescription: payload.ShortDescription,
		ValueStatement:   payload.ValueStatement,
		BenefitBullets:   payload.BenefitBullets,
		UseCases:         payload.UseCases,
		Provider:         c.Name(),
	}, nil
}

func (c *Client) complete(ctx context.Context, kind, systemPrompt, userPrompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	payload := map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":       0.2,
		"max_output_tokens": 600,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("openai request failed with status %d", resp.StatusCode)
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: status %d", providers.ErrCompletionUnauthorized, resp.StatusCode)
		}
		return "", statusErr
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("openai response missing output text")
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}

	observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), nil)
	return stripCodeFences(text), nil
}

// stripCodeFences cleans Markdown code blocks if present
func stripCodeFences(text string) string {
	cleaned := text
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
