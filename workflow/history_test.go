package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionHistory_Lifecycle(t *testing.T) {
	t.Parallel()
	h := NewExecutionHistory("exec-1", "pipeline")
	assert.Equal(t, StatusRunning, h.Status)

	rec := h.RecordNodeStart("a", "agent-a")
	h.RecordNodeEnd(rec, 1, nil)

	failed := h.RecordNodeStart("b", "agent-b")
	h.RecordNodeEnd(failed, 3, errors.New("boom"))

	h.Complete(StatusFailed, errors.New("node b failed"))

	assert.Equal(t, StatusFailed, h.Status)
	assert.Equal(t, "node b failed", h.Error)
	assert.False(t, h.EndTime.IsZero())

	nodes := h.GetNodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, StatusCompleted, nodes[0].Status)
	assert.Equal(t, StatusFailed, nodes[1].Status)
	assert.Equal(t, 3, nodes[1].Attempts)
	assert.Equal(t, "boom", nodes[1].Error)

	assert.NotNil(t, h.GetNodeByName("a"))
	assert.Nil(t, h.GetNodeByName("ghost"))
}

func TestExecutionHistoryStore_Queries(t *testing.T) {
	t.Parallel()
	store := NewExecutionHistoryStore()

	h1 := NewExecutionHistory("exec-1", "pipeline")
	h1.Complete(StatusCompleted, nil)
	h2 := NewExecutionHistory("exec-2", "pipeline")
	h2.Complete(StatusFailed, errors.New("boom"))
	h3 := NewExecutionHistory("exec-3", "other")
	h3.Complete(StatusCompleted, nil)

	store.Save(h1)
	store.Save(h2)
	store.Save(h3)

	got, ok := store.Get("exec-2")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)

	_, ok = store.Get("ghost")
	assert.False(t, ok)

	assert.Len(t, store.ListByWorkflow("pipeline"), 2)
	assert.Len(t, store.ListByStatus(StatusCompleted), 2)
	assert.Len(t, store.ListByStatus(StatusCancelled), 0)

	now := time.Now()
	assert.Len(t, store.ListByTimeRange(now.Add(-time.Minute), now.Add(time.Minute)), 3)
	assert.Empty(t, store.ListByTimeRange(now.Add(time.Hour), now.Add(2*time.Hour)))
}
