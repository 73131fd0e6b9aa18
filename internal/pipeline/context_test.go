package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjuz-cas/SURF/internal/models"
)

func TestRunContextAppendOrder(t *testing.T) {
	rc := NewRunContext()
	assert.Equal(t, 0, rc.Len())

	rc.Append("ingest", "Data Unification Specialist", models.StepOutput{
		Status: "ok", Payload: map[string]any{"total_items": 12},
	})
	rc.Append("analyze", "Category & Scoring Analyst", models.StepOutput{
		Status: "ok", Payload: map[string]any{"total_analyzed": 12},
	})

	require.Equal(t, 2, rc.Len())

	first, ok := rc.ByIndex(0)
	require.True(t, ok)
	assert.Equal(t, "ingest", first.Name)
	assert.Equal(t, 0, first.Index)

	byName, ok := rc.ByName("analyze")
	require.True(t, ok)
	assert.Equal(t, 1, byName.Index)

	_, ok = rc.ByIndex(2)
	assert.False(t, ok)
	_, ok = rc.ByName("deliver")
	assert.False(t, ok)
}

func TestRunContextEntriesIsACopy(t *testing.T) {
	rc := NewRunContext()
	rc.Append("ingest", "role", models.StepOutput{Status: "ok", Payload: map[string]any{}})

	entries := rc.Entries()
	entries[0].Name = "tampered"

	kept, ok := rc.ByIndex(0)
	require.True(t, ok)
	assert.Equal(t, "ingest", kept.Name)
}

func TestRunContextSummary(t *testing.T) {
	rc := NewRunContext()
	rc.Append("ingest", "Data Unification Specialist", models.StepOutput{Status: "ok"})
	rc.Append("analyze", "Category & Scoring Analyst", models.StepOutput{Status: "ok"})

	lines := rc.Summary()
	require.Len(t, lines, 2)
	assert.Equal(t, "1. ingest (Data Unification Specialist): ok", lines[0])
	assert.Equal(t, "2. analyze (Category & Scoring Analyst): ok", lines[1])
}

func TestStepOutputPayloadJSON(t *testing.T) {
	out := models.StepOutput{Status: "ok", Payload: map[string]any{
		"total_items": 12,
		"sources":     []string{"email", "chat"},
	}}
	assert.JSONEq(t, `{"total_items":12,"sources":["email","chat"]}`, out.PayloadJSON())
}
