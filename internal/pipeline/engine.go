package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/sanjuz-cas/SURF/internal/llm"
	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/tools"
)

// Engine executes steps strictly in order. Each step's instruction is built
// from the output of its predecessors, so there is no independent work to
// parallelize within one run.
//
// States: Pending -> Running(i) -> {Running(i+1) | Failed | Completed}.
// A step failure halts the run; entries exist only for steps that finished.
type Engine struct {
	Steps      []*Step
	Reasoner   llm.Reasoner
	Dispatcher *tools.Dispatcher
	Logger     *log.Logger
}

// Run drives the pipeline to a terminal state. Both terminal states carry
// the ledger accumulated so far for operator diagnosis.
func (e *Engine) Run(ctx context.Context, runID string) (models.PipelineResult, *RunContext) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}

	rc := NewRunContext()
	for i, step := range e.Steps {
		if err := ctx.Err(); err != nil {
			return e.failed(runID, step, fmt.Errorf("%w: %v", ErrInterrupted, err)), rc
		}

		logger.Printf("pipeline: stage %d/%d %s (%s) running, upstream context: %v",
			i+1, len(e.Steps), step.Name, step.Role, rc.Len() > 0)

		out, err := step.Execute(ctx, rc, e.Reasoner, e.Dispatcher)
		if err != nil {
			logger.Printf("pipeline: stage %s failed: %v", step.Name, err)
			return e.failed(runID, step, err), rc
		}
		rc.Append(step.Name, step.Role, out)
		logger.Printf("pipeline: stage %s completed", step.Name)
	}

	return models.PipelineResult{
		Success: true,
		State:   models.StatusCompleted,
		RunID:   runID,
	}, rc
}

func (e *Engine) failed(runID string, step *Step, err error) models.PipelineResult {
	return models.PipelineResult{
		Success:    false,
		State:      models.StatusFailed,
		RunID:      runID,
		FailedStep: step.Name,
		FailedRole: step.Role,
		Reason:     err.Error(),
	}
}
