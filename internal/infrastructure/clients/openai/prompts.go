package openai

import (
	"fmt"

	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
)

const classifySystemPrompt = `You are a product data assistant for an industrial catalog platform. Return ONLY valid JSON with this schema:
{
  "category": string (top-level product category),
  "sub_category": string (more specific grouping),
  "classification": string (short free-text classification),
  "confidence": number (0.0-1.0),
  "keywords": string[] (3-8 lowercase search keywords),
  "lead_time_days": number (typical procurement lead time in days),
  "reasoning": string (one short sentence)
}
Base the classification only on the supplied fields. Do not invent part numbers or manufacturers.`

const contentSystemPrompt = `You are a product copywriter for an industrial catalog platform. Return ONLY valid JSON with this schema:
{
  "short_description": string (1 sentence, plain language),
  "value_statement": string (1-2 sentences on why a buyer would choose this item),
  "benefit_bullets": string[] (3-5 items),
  "use_cases": string[] (2-4 items)
}
Keep language factual and free of superlatives. Do not include pricing.`

func buildClassifyUserPrompt(record *entities.SourceRecord) string {
	return fmt.Sprintf(
		"Part number: %s\nName: %s\nManufacturer: %s\nCategory hint: %s\nDescription: %s\n",
		record.PartNumber, record.Name, record.Manufacturer, record.Classification, record.Description,
	)
}

func buildContentUserPrompt(prompt string, record *entities.SourceRecord) string {
	return fmt.Sprintf(
		"%s\n\nPart number: %s\nName: %s\nManufacturer: %s\nDescription: %s\n",
		prompt, record.PartNumber, record.Name, record.Manufacturer, record.Description,
	)
}
