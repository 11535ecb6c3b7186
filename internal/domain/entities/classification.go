package entities

// ClassificationResult is the structured output of an AI classification call.
type ClassificationResult struct {
	Category       string   `json:"category"`
	SubCategory    string   `json:"sub_category"`
	Classification string   `json:"classification"`
	AutoApprove    bool     `json:"auto_approve"`
	Confidence     float64  `json:"confidence"`
	Keywords       []string `json:"keywords"`
	LeadTimeDays   int      `json:"lead_time_days"`
	Reasoning      string   `json:"reasoning"`
	Provider       string   `json:"provider"`
	Cached         bool     `json:"cached,omitempty"`
}

// ContentResult is the structured output of an AI content-generation call,
// consumed by the marketing stage.
type ContentResult struct {
	ShortDescription string   `json:"short_description"`
	ValueStatement   string   `json:"value_statement"`
	BenefitBullets   []string `json:"benefit_bullets"`
	UseCases         []string `json:"use_cases"`
	Provider         string   `json:"provider"`
	Cached           bool     `json:"cached,omitempty"`
}

// BatchSummary reports the outcome of one batch run.
type BatchSummary struct {
	Total           int    `json:"total"`
	Enriched        int    `json:"enriched"`
	Skipped         int    `json:"skipped"`
	Failed          int    `json:"failed"`
	Version         string `json:"version"`
	DurationMsTotal int64  `json:"duration_ms_total"`
}
