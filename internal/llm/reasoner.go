package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sanjuz-cas/SURF/internal/models"
)

// ToolOutcome pairs an invocation the reasoner requested with the result the
// dispatcher produced for it.
type ToolOutcome struct {
	Invocation models.ToolInvocation
	Result     models.ToolResult
}

// Request is one turn handed to the reasoning capability: the step's
// instruction, the operation signatures it may call, and the results of any
// invocations it already made this step.
type Request struct {
	Role        string
	Instruction string
	Operations  []string
	History     []ToolOutcome
}

// Response is what the capability produced: either requested tool calls
// (dispatched and fed back in the next turn) or a final text blob.
type Response struct {
	Text      string
	ToolCalls []models.ToolInvocation
}

// Reasoner is the opaque reasoning capability. Implementations are injected
// into each pipeline step at construction so tests can substitute a
// deterministic stub.
type Reasoner interface {
	Reason(ctx context.Context, req Request) (Response, error)
}

// BuildPrompt renders a Request into the text protocol the HTTP/SDK
// providers speak: call a tool by replying with a single tool_call object,
// or finish by replying with the final JSON report.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are acting as: %s\n\n%s\n", req.Role, req.Instruction)
	if len(req.Operations) > 0 {
		b.WriteString("\nOperations you may call (no others exist):\n")
		for _, op := range req.Operations {
			b.WriteString("- " + op + "\n")
		}
		b.WriteString("\nTo call an operation, reply with ONLY this JSON, no prose:\n")
		b.WriteString(`{"tool_call": {"operation": "<name>", "arguments": {...}}}` + "\n")
	}
	if len(req.History) > 0 {
		b.WriteString("\nResults of your previous operation calls:\n")
		for _, h := range req.History {
			res, _ := json.Marshal(h.Result)
			fmt.Fprintf(&b, "%s -> %s\n", h.Invocation.Operation, res)
		}
	}
	b.WriteString("\nWhen you are done, reply with ONLY the final JSON object required by your task, no prose, no code fences.\n")
	return b.String()
}

// ParseResponse turns raw provider text into a Response, detecting the
// tool_call envelope.
func ParseResponse(text string) Response {
	trimmed := StripFences(text)
	var envelope struct {
		ToolCall *models.ToolInvocation `json:"tool_call"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.ToolCall != nil && envelope.ToolCall.Operation != "" {
		return Response{ToolCalls: []models.ToolInvocation{*envelope.ToolCall}}
	}
	return Response{Text: trimmed}
}

// StripFences removes markdown code fences models habitually wrap JSON in.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if idx := strings.IndexByte(t, '\n'); idx != -1 {
		t = t[idx+1:]
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}
