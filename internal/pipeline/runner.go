package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/sanjuz-cas/SURF/internal/llm"
	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/store"
	"github.com/sanjuz-cas/SURF/internal/tools"
)

// Runner assembles the five stages in fixed order, executes them, and
// persists the final prioritized output. Each call to Run owns an
// independent ledger, so concurrent runs only contend on the store itself.
type Runner struct {
	Store      *store.Store
	Reasoner   llm.Reasoner
	Dispatcher *tools.Dispatcher
	Logger     *log.Logger

	TopItems    int
	MaxAttempts int
}

// Run executes one full pipeline pass. On failure the result names the
// failing stage and a one-line reason; the returned ledger holds whatever
// completed before the halt.
func (r *Runner) Run(ctx context.Context) (models.PipelineResult, *RunContext) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	topItems := r.TopItems
	if topItems <= 0 {
		topItems = 3
	}

	steps := BuildSteps(topItems, r.MaxAttempts)
	for _, step := range steps {
		if err := step.Validate(r.Dispatcher.Registry()); err != nil {
			return models.PipelineResult{
				Success:    false,
				State:      models.StatusFailed,
				FailedStep: step.Name,
				FailedRole: step.Role,
				Reason:     err.Error(),
			}, NewRunContext()
		}
	}

	runID := uuid.NewString()
	logger.Printf("pipeline: run %s starting, %d stages", runID, len(steps))

	engine := &Engine{Steps: steps, Reasoner: r.Reasoner, Dispatcher: r.Dispatcher, Logger: logger}
	result, rc := engine.Run(ctx, runID)
	if !result.Success {
		return result, rc
	}

	if err := r.persistResults(ctx, runID, rc); err != nil {
		logger.Printf("pipeline: run %s completed but persisting results failed: %v", runID, err)
		result.Success = false
		result.State = models.StatusFailed
		result.FailedStep = StepDeliver
		result.Reason = fmt.Sprintf("persist results: %v", err)
		return result, rc
	}

	logger.Printf("pipeline: run %s completed", runID)
	return result, rc
}

// riskItem is the strict shape each enriched entry must decode to before it
// is written to the store. Missing fields are contract violations, not
// occasions for defaults.
type riskItem struct {
	FeedbackID        int64              `json:"feedback_id"`
	Rank              int                `json:"rank"`
	Title             string             `json:"title"`
	Category          string             `json:"category"`
	Score             float64            `json:"score"`
	Team              string             `json:"team"`
	ActionPlan        *models.ActionPlan `json:"action_plan"`
	PreMortemForecast string             `json:"pre_mortem_forecast"`
}

// persistResults writes the enriched items and the run summary so the REST
// read surface reflects this run.
func (r *Runner) persistResults(ctx context.Context, runID string, rc *RunContext) error {
	entry, ok := rc.ByName(StepAssessRisk)
	if !ok {
		return fmt.Errorf("no %s output recorded", StepAssessRisk)
	}
	payload := entry.Output.Payload

	raw, err := json.Marshal(payload["top_items"])
	if err != nil {
		return err
	}
	var items []riskItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: top_items: %v", ErrContractViolation, err)
	}

	for i, item := range items {
		if err := validateRiskItem(item); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrContractViolation, i+1, err)
		}
		record := models.PriorityItem{
			FeedbackID:        item.FeedbackID,
			Rank:              item.Rank,
			Title:             item.Title,
			Category:          item.Category,
			Score:             item.Score,
			Team:              item.Team,
			ActionPlan:        *item.ActionPlan,
			PreMortemForecast: item.PreMortemForecast,
		}
		if record.Rank <= 0 {
			record.Rank = i + 1
		}
		if _, err := r.Store.SavePrioritizedOutput(ctx, record); err != nil {
			return err
		}
	}

	summary := models.RunSummary{ID: runID}
	if n, ok := payload["total_analyzed"].(float64); ok {
		summary.TotalAnalyzed = int(n)
	}
	if risk, ok := payload["total_risk_estimate"].(string); ok {
		summary.TotalRiskEstimate = risk
	}
	return r.Store.SaveRunSummary(ctx, summary)
}

func validateRiskItem(item riskItem) error {
	switch {
	case item.Title == "":
		return fmt.Errorf("missing title")
	case item.Category == "":
		return fmt.Errorf("missing category")
	case item.Team == "":
		return fmt.Errorf("missing team")
	case item.PreMortemForecast == "":
		return fmt.Errorf("missing pre_mortem_forecast")
	case item.ActionPlan == nil:
		return fmt.Errorf("missing action_plan")
	}
	return nil
}
