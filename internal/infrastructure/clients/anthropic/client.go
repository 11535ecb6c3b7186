package anthropic

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

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Client implements the Anthropic completion provider.
type Client struct {
	apiKey                string
	model                 string
	baseURL               string
	httpClient            *http.Client
	autoApproveConfidence float64
}

// NewClient creates a new Anthropic client. Malformed keys are rejected here.
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg == nil || cfg.AnthropicKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if !strings.HasPrefix(cfg.AnthropicKey, "sk-ant-") {
		return nil, fmt.Errorf("anthropic api key has invalid format")
	}

	model := cfg.AnthropicModel
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	threshold := cfg.AutoApproveConfidence
	if threshold <= 0 {
		threshold = 0.90
	}

	return &Client{
		apiKey:  cfg.AnthropicKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		autoApproveConfidence: threshold,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return "anthropic"
}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageEnvelope struct {
	Content []messageContent `json:"content"`
}

// Classify categorizes a catalog record.
func (c *Client) Classify(ctx context.Context, record *entities.SourceRecord) (*entities.ClassificationResult, error) {
	if record == nil {
		return nil, errors.New("record is required")
	}

	userPrompt := fmt.Sprintf(
		"Part number: %s\nName: %s\nManufacturer: %s\nCategory hint: %s\nDescription: %s\n",
		record.PartNumber, record.Name, record.Manufacturer, record.Classification, record.Description,
	)

	text, err := c.complete(ctx, "classify", classifySystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Category       string   `json:"category"`
		SubCategory    string   `json:"sub_category"`
		Classification string   `json:"classification"`
		Confidence     float64  `json:"confidence"`
		Keywords       []string `json:"keywords"`
		LeadTimeDays   int      `json:"lead_time_days"`
		Reasoning      string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic classification: %w", err)
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

	userPrompt := fmt.Sprintf(
		"%s\n\nPart number: %s\nName: %s\nManufacturer: %s\nDescription: %s\n",
		prompt, record.PartNumber, record.Name, record.Manufacturer, record.Description,
	)

	text, err := c.complete(ctx, "generate_content", contentSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ShortDescription string   `json:"short_description"`
		ValueStatement   string   `json:"value_statement"`
		BenefitBullets   []string `json:"benefit_bullets"`
		UseCases         []string `json:"use_cases"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse anthropic content: %w", err)
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
	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 600,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("anthropic request failed with status %d", resp.StatusCode)
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: status %d", providers.ErrCompletionUnauthorized, resp.StatusCode)
		}
		return "", statusErr
	}

	var envelope messageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}

	var text string
	for _, content := range envelope.Content {
		if content.Type == "text" && content.Text != "" {
			text = content.Text
			break
		}
	}

	if text == "" {
		err := errors.New("anthropic response missing text content")
		observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), err)
		return "", err
	}

	observability.RecordProviderCall(ctx, c.Name(), kind, time.Since(start), nil)

	cleaned := text
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned), nil
}

const classifySystemPrompt = `You are a product data assistant for an industrial catalog platform. Return ONLY valid JSON with this schema:
{
  "category": string,
  "sub_category": string,
  "classification": string,
  "confidence": number (0.0-1.0),
  "keywords": string[] (3-8 lowercase search keywords),
  "lead_time_days": number,
  "reasoning": string
}
Base the classification only on the supplied fields.`

const contentSystemPrompt = `You are a product copywriter for an industrial catalog platform. Return ONLY valid JSON with this schema:
{
  "short_description": string,
  "value_statement": string,
  "benefit_bullets": string[] (3-5 items),
  "use_cases": string[] (2-4 items)
}
Keep language factual. Do not include pricing.`
