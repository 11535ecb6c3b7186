package entities

import (
	"fmt"
	"strings"
)

// SourceRecord is a sparse catalog row as supplied by upstream feeds. It is
// read-only to the engine for the duration of one enrichment run.
type SourceRecord struct {
	PartNumber     string `json:"part_number"`
	Manufacturer   string `json:"manufacturer"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
}

// Upstream feeds disagree on field casing; every known alias maps to one
// canonical field, first match wins.
var recordAliases = map[string][]string{
	"part_number":    {"part_number", "partNumber", "PartNumber", "PART_NUMBER", "part_no", "partno", "sku", "SKU"},
	"manufacturer":   {"manufacturer", "Manufacturer", "MANUFACTURER", "mfr", "mfg", "brand", "Brand"},
	"name":           {"name", "Name", "NAME", "title", "Title", "product_name", "productName"},
	"description":    {"description", "Description", "DESCRIPTION", "desc", "long_description", "longDescription"},
	"classification": {"classification", "Classification", "category", "Category", "category_hint", "categoryHint", "product_class"},
}

// NormalizeRecord maps a raw upstream object onto the canonical SourceRecord
// field set. The rest of the engine only ever sees canonical names.
func NormalizeRecord(raw map[string]any) *SourceRecord {
	pick := func(canonical string) string {
		for _, alias := range recordAliases[canonical] {
			if v, ok := raw[alias]; ok {
				s := strings.TrimSpace(stringify(v))
				if s != "" {
					return s
				}
			}
		}
		return ""
	}

	return &SourceRecord{
		PartNumber:     pick("part_number"),
		Manufacturer:   pick("manufacturer"),
		Name:           pick("name"),
		Description:    pick("description"),
		Classification: pick("classification"),
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Valid reports whether the record carries enough identity to enrich at all.
func (r *SourceRecord) Valid() bool {
	return r != nil && (r.PartNumber != "" || r.Name != "")
}
