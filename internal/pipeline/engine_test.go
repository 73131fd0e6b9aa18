package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjuz-cas/SURF/internal/llm"
	"github.com/sanjuz-cas/SURF/internal/models"
)

func TestEngineRunsStagesInOrder(t *testing.T) {
	reasoner := &scripted{responses: []llm.Response{
		finalText(`{"a": 1}`),
		finalText(`{"b": 2}`),
		finalText(`{"c": 3}`),
	}}
	engine := &Engine{
		Steps: []*Step{
			{Name: "one", Role: "r1", Contract: []string{"a"}},
			{Name: "two", Role: "r2", Contract: []string{"b"}},
			{Name: "three", Role: "r3", Contract: []string{"c"}},
		},
		Reasoner:   reasoner,
		Dispatcher: newStepDispatcher(t),
		Logger:     quietLogger(),
	}

	result, rc := engine.Run(context.Background(), "run-1")
	require.True(t, result.Success)
	assert.Equal(t, models.StatusCompleted, result.State)
	assert.Equal(t, "run-1", result.RunID)

	require.Equal(t, 3, rc.Len())
	for i, name := range []string{"one", "two", "three"} {
		entry, ok := rc.ByIndex(i)
		require.True(t, ok)
		assert.Equal(t, name, entry.Name)
		assert.Equal(t, i, entry.Index)
	}
}

func TestEngineHaltsOnFirstFailure(t *testing.T) {
	reasoner := &scripted{responses: []llm.Response{
		finalText(`{"a": 1}`),
		finalText(`{"wrong": true}`),
	}}
	engine := &Engine{
		Steps: []*Step{
			{Name: "one", Role: "r1", Contract: []string{"a"}},
			{Name: "two", Role: "r2", Contract: []string{"b"}},
			{Name: "three", Role: "r3", Contract: []string{"c"}},
		},
		Reasoner:   reasoner,
		Dispatcher: newStepDispatcher(t),
		Logger:     quietLogger(),
	}

	result, rc := engine.Run(context.Background(), "run-1")
	require.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, result.State)
	assert.Equal(t, "two", result.FailedStep)
	assert.Equal(t, "r2", result.FailedRole)
	assert.Contains(t, result.Reason, "contract violation")

	// the ledger holds only what finished; the violating output is absent
	// and the third stage never ran
	require.Equal(t, 1, rc.Len())
	entry, _ := rc.ByIndex(0)
	assert.Equal(t, "one", entry.Name)
	assert.Len(t, reasoner.requests, 2)
}

func TestEngineInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &Engine{
		Steps:      []*Step{{Name: "one", Role: "r1"}},
		Reasoner:   &scripted{},
		Dispatcher: newStepDispatcher(t),
		Logger:     quietLogger(),
	}

	result, rc := engine.Run(ctx, "run-1")
	require.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, result.State)
	assert.Contains(t, result.Reason, "step interrupted")
	assert.Equal(t, 0, rc.Len())
}
