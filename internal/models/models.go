package models

import (
	"encoding/json"
	"time"
)

// Category labels assigned by the analysis stage.
const (
	CategoryBug     = "Bug"
	CategoryFeature = "Feature"
	CategoryUX      = "UX"
	CategoryOther   = "Other"
)

// FeedbackRecord is one row of raw customer feedback. Category and Score stay
// empty/zero until the analysis stage has processed the item.
type FeedbackRecord struct {
	ID        int64     `json:"id"`
	RawText   string    `json:"raw_text"`
	Source    string    `json:"source"`
	Category  string    `json:"category,omitempty"`
	Score     float64   `json:"score"`
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionPlan is produced by the prioritization stage for each selected item.
type ActionPlan struct {
	ImmediateAction string `json:"immediate_action"`
	Timeline        string `json:"timeline"`
	SuccessMetric   string `json:"success_metric"`
	Dependencies    string `json:"dependencies"`
}

// PriorityItem is a prioritized feedback item, enriched by the risk stage
// with a pre-mortem forecast before delivery.
type PriorityItem struct {
	ID                int64      `json:"id,omitempty"`
	FeedbackID        int64      `json:"feedback_id"`
	Rank              int        `json:"rank"`
	Title             string     `json:"title"`
	Category          string     `json:"category"`
	Score             float64    `json:"score"`
	Team              string     `json:"team"`
	ActionPlan        ActionPlan `json:"action_plan"`
	PreMortemForecast string     `json:"pre_mortem_forecast,omitempty"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
}

// RunSummary records the outcome of one pipeline run for the dashboard.
type RunSummary struct {
	ID                string    `json:"id"`
	TotalAnalyzed     int       `json:"total_analyzed"`
	TotalRiskEstimate string    `json:"total_risk_estimate"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Stats aggregates stored rows for the dashboard read surface.
type Stats struct {
	TotalFeedback int            `json:"total_feedback"`
	Processed     int            `json:"processed"`
	ByCategory    map[string]int `json:"by_category"`
	ByPriority    map[string]int `json:"by_priority"`
}

// ToolInvocation is a request from a reasoning step to run one named
// operation with an argument bag.
type ToolInvocation struct {
	Operation string         `json:"operation"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Method reports which path a tool invocation took.
type Method string

const (
	MethodPrimary       Method = "primary"
	MethodLocalFallback Method = "local_fallback"
)

// ToolResult is the uniform envelope every dispatched invocation resolves to.
// Success is false only for genuinely unrecoverable errors; a transport
// failure on a deliverable operation resolves to Success=true with
// Method=local_fallback.
type ToolResult struct {
	Success bool           `json:"success"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
	Method  Method         `json:"method"`
}

// StepStatus is the lifecycle state of one pipeline step or run.
type StepStatus string

const (
	StatusPending   StepStatus = "PENDING"
	StatusRunning   StepStatus = "RUNNING"
	StatusCompleted StepStatus = "COMPLETED"
	StatusFailed    StepStatus = "FAILED"
)

// StepOutput is the structured result a step appends to the run context.
// Payload must round-trip through JSON because the reasoning capability
// communicates only in text.
type StepOutput struct {
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload"`
}

// PayloadJSON renders the payload for interpolation into a downstream
// step's instruction.
func (o StepOutput) PayloadJSON() string {
	b, err := json.Marshal(o.Payload)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// PipelineResult is what the runner hands back to the operator: the terminal
// state, the ledger accumulated so far, and on failure the step that broke
// and a one-line reason.
type PipelineResult struct {
	Success    bool       `json:"success"`
	State      StepStatus `json:"state"`
	RunID      string     `json:"run_id"`
	FailedStep string     `json:"failed_step,omitempty"`
	FailedRole string     `json:"failed_role,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}
