package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjuz-cas/SURF/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(Request{
		Role:        "Category & Scoring Analyst",
		Instruction: "Analyze every unprocessed feedback item.",
		Operations:  []string{"get_unprocessed_feedback(limit: int = 10)"},
		History: []ToolOutcome{{
			Invocation: models.ToolInvocation{Operation: "get_unprocessed_feedback"},
			Result:     models.ToolResult{Success: true, Method: models.MethodPrimary},
		}},
	})

	assert.Contains(t, prompt, "Category & Scoring Analyst")
	assert.Contains(t, prompt, "Analyze every unprocessed feedback item.")
	assert.Contains(t, prompt, "get_unprocessed_feedback(limit: int = 10)")
	assert.Contains(t, prompt, `{"tool_call"`)
	assert.Contains(t, prompt, "get_unprocessed_feedback -> ")
}

func TestParseResponseDetectsToolCall(t *testing.T) {
	resp := ParseResponse(`{"tool_call": {"operation": "read_top_items", "arguments": {"limit": 3}}}`)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "read_top_items", resp.ToolCalls[0].Operation)
	assert.Equal(t, float64(3), resp.ToolCalls[0].Arguments["limit"])
	assert.Empty(t, resp.Text)
}

func TestParseResponseFinalText(t *testing.T) {
	resp := ParseResponse("```json\n{\"total_items\": 8}\n```")
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, `{"total_items": 8}`, resp.Text)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
	assert.Equal(t, "plain", StripFences("plain"))
}

func TestOfflineIngestFlow(t *testing.T) {
	o := &Offline{}
	req := Request{Role: "Data Unification Specialist", Instruction: "gather"}

	resp, err := o.Reason(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_all_feedback", resp.ToolCalls[0].Operation)

	req.History = []ToolOutcome{{
		Invocation: resp.ToolCalls[0],
		Result: models.ToolResult{Success: true, Payload: map[string]any{
			"count": 2,
			"items": []models.FeedbackRecord{
				{ID: 1, RawText: "login broken", Source: "email"},
				{ID: 2, RawText: "add dark mode", Source: "chat"},
			},
		}},
	}}
	resp, err = o.Reason(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, resp.ToolCalls)

	assert.Contains(t, resp.Text, `"total_items":2`)
	assert.Contains(t, resp.Text, `"chat"`)
	assert.Contains(t, resp.Text, "ready_for_analysis")
}

func TestOfflineClassify(t *testing.T) {
	category, score := classify("Security vulnerability in the login flow")
	assert.Equal(t, models.CategoryBug, category)
	assert.GreaterOrEqual(t, score, 9.0)

	category, _ = classify("The settings layout is confusing")
	assert.Equal(t, models.CategoryUX, category)

	category, _ = classify("Would be great to export reports")
	assert.Equal(t, models.CategoryFeature, category)

	category, score = classify("Thanks for the great product")
	assert.Equal(t, models.CategoryOther, category)
	assert.LessOrEqual(t, score, 5.0)
}

func TestOfflineUnknownRole(t *testing.T) {
	o := &Offline{}
	_, err := o.Reason(context.Background(), Request{Role: "Court Jester"})
	assert.Error(t, err)
}

func TestNewFromEnvDefaultsToOffline(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	r := NewFromEnv(context.Background(), "", "", 5*time.Second)
	assert.IsType(t, &Offline{}, r)
}

func TestNewFromEnvOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", "")

	r := NewFromEnv(context.Background(), "openai", "gpt-4o-mini", 5*time.Second)
	client, ok := r.(*OpenAI)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", client.Model)
	assert.Equal(t, "sk-test", client.APIKey)
}
