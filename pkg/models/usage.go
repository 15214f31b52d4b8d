package models

import "time"

// Outcome values recorded for a dispatched upstream call.
const (
	OutcomeOK                 = "ok"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeQuotaExceeded      = "quota_exceeded"
	OutcomeError              = "error"
)

// UsageRecord tracks a single dispatched generation call.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Operation        string    `json:"operation"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	Outcome          string    `json:"outcome"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage per operation and model.
type UsageSummary struct {
	Operation       string `json:"operation"`
	Model           string `json:"model"`
	RequestCount    int    `json:"request_count"`
	FailedCount     int    `json:"failed_count"`
	TotalPrompt     int    `json:"total_prompt"`
	TotalCompletion int    `json:"total_completion"`
	TotalTokens     int    `json:"total_tokens"`
	AvgLatencyMs    int64  `json:"avg_latency_ms"`
}

// BudgetStatus reports token usage against the configured budget.
type BudgetStatus struct {
	Period    string    `json:"period"`
	Since     time.Time `json:"since"`
	MaxTokens int64     `json:"max_tokens"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
}
