package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sanjuz-cas/SURF/internal/llm"
	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/tools"
)

// Step is one stage of the pipeline: a role identity, an instruction
// template, the operations it may call, and the shape of JSON it must emit.
type Step struct {
	Name         string
	Role         string
	Template     string   // may reference prior outputs via {{step:NAME.output}}
	Capabilities []string // subset of registered operations
	Contract     []string // required top-level payload keys

	// MaxAttempts bounds the re-prompt loop when the final text does not
	// parse as JSON.
	MaxAttempts int
	// MaxToolRounds bounds the reason/act loop so a looping model cannot
	// hang a run.
	MaxToolRounds int
}

const (
	defaultMaxAttempts   = 3
	defaultMaxToolRounds = 64
)

var placeholderRe = regexp.MustCompile(`\{\{step:([a-zA-Z0-9_\-]+)\.output\}\}`)

// Instruction builds the effective instruction by substituting prior step
// payloads into the template.
func (s *Step) Instruction(rc *RunContext) string {
	return placeholderRe.ReplaceAllStringFunc(s.Template, func(m string) string {
		match := placeholderRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		if entry, ok := rc.ByName(match[1]); ok {
			return entry.Output.PayloadJSON()
		}
		return fmt.Sprintf("(no output recorded for step %s)", match[1])
	})
}

// Validate checks the step's capability set against the registry at wiring
// time, so an unknown name fails before anything runs.
func (s *Step) Validate(reg *tools.Registry) error {
	for _, name := range s.Capabilities {
		if _, err := reg.Resolve(name); err != nil {
			return fmt.Errorf("step %s: %w", s.Name, err)
		}
	}
	return nil
}

// Execute runs the step: build the instruction, loop the reasoning
// capability with tool dispatch, then parse and contract-check the final
// answer. Any returned error is fatal to the run.
func (s *Step) Execute(ctx context.Context, rc *RunContext, reasoner llm.Reasoner, disp *tools.Dispatcher) (models.StepOutput, error) {
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	maxRounds := s.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}

	instruction := s.Instruction(rc)
	req := llm.Request{
		Role:        s.Role,
		Instruction: instruction,
		Operations:  disp.Registry().Describe(s.Capabilities),
	}

	attempts := 0
	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return models.StepOutput{}, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}

		resp, err := reasoner.Reason(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return models.StepOutput{}, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
			}
			return models.StepOutput{}, fmt.Errorf("reasoning call: %w", err)
		}

		if len(resp.ToolCalls) > 0 {
			for _, inv := range resp.ToolCalls {
				if !s.allowed(inv.Operation) {
					return models.StepOutput{}, fmt.Errorf("%w: %s requested %q, declared set %v",
						ErrOperationNotAllowed, s.Name, inv.Operation, s.Capabilities)
				}
				result := disp.Invoke(ctx, inv)
				if !result.Success {
					if ctx.Err() != nil {
						return models.StepOutput{}, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
					}
					return models.StepOutput{}, fmt.Errorf("%w: %s: %s", ErrToolFailed, inv.Operation, result.Error)
				}
				req.History = append(req.History, llm.ToolOutcome{Invocation: inv, Result: result})
			}
			continue
		}

		payload, err := parsePayload(resp.Text)
		if err != nil {
			attempts++
			if attempts >= maxAttempts {
				return models.StepOutput{}, fmt.Errorf("%w: after %d attempts: %v", ErrMalformedOutput, attempts, err)
			}
			req.Instruction = instruction + fmt.Sprintf(
				"\n\nYour previous reply was not a valid JSON object (%v). Reply again with ONLY the final JSON object.", err)
			continue
		}

		if missing := s.missingKeys(payload); len(missing) > 0 {
			return models.StepOutput{}, fmt.Errorf("%w: missing keys %s",
				ErrContractViolation, strings.Join(missing, ", "))
		}
		return models.StepOutput{Status: "ok", Payload: payload}, nil
	}

	return models.StepOutput{}, fmt.Errorf("%w: no final answer after %d rounds", ErrMalformedOutput, maxRounds)
}

func (s *Step) allowed(operation string) bool {
	for _, name := range s.Capabilities {
		if name == operation {
			return true
		}
	}
	return false
}

func (s *Step) missingKeys(payload map[string]any) []string {
	var missing []string
	for _, key := range s.Contract {
		if _, ok := payload[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func parsePayload(text string) (map[string]any, error) {
	trimmed := llm.StripFences(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty reply")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
