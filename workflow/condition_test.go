package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cquehl/agentgraph/types"
)

func snapshotWithMessages(contents ...string) *Snapshot {
	snap := &Snapshot{State: map[string]any{}}
	for _, content := range contents {
		msg := types.NewAssistantMessage(content)
		snap.Messages = append(snap.Messages, msg)
	}
	if len(snap.Messages) > 0 {
		snap.LastMessage = &snap.Messages[len(snap.Messages)-1]
	}
	return snap
}

// ---------------------------------------------------------------------------
// MessageCountCondition
// ---------------------------------------------------------------------------

func TestMessageCountCondition(t *testing.T) {
	t.Parallel()
	snap := snapshotWithMessages("one", "two", "three")

	tests := []struct {
		operator string
		count    int
		want     bool
	}{
		{OpEqual, 3, true},
		{OpEqual, 2, false},
		{OpNotEqual, 2, true},
		{OpGreater, 2, true},
		{OpGreater, 3, false},
		{OpLess, 4, true},
		{OpGreaterEqual, 3, true},
		{OpLessEqual, 2, false},
	}
	for _, tt := range tests {
		got, err := NewMessageCountCondition(tt.count, tt.operator).Evaluate(snap)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "count %d %s %d", len(snap.Messages), tt.operator, tt.count)
	}
}

func TestMessageCountCondition_InvalidOperator(t *testing.T) {
	t.Parallel()
	_, err := NewMessageCountCondition(1, "~=").Evaluate(snapshotWithMessages("x"))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOperator, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// ContentCondition
// ---------------------------------------------------------------------------

func TestContentCondition_Contains(t *testing.T) {
	t.Parallel()
	snap := snapshotWithMessages("The task is COMPLETE now")

	got, err := NewContentCondition("complete", MatchContains).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewContentCondition("pending", MatchContains).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestContentCondition_Regex(t *testing.T) {
	t.Parallel()
	snap := snapshotWithMessages("Score: 42 points")

	got, err := NewContentCondition(`score:\s*\d+`, MatchRegex).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewContentCondition(`^\d+$`, MatchRegex).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestContentCondition_RegexInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewContentCondition("[unclosed", MatchRegex).Evaluate(snapshotWithMessages("x"))
	assert.Error(t, err)
}

func TestContentCondition_Equals(t *testing.T) {
	t.Parallel()
	snap := snapshotWithMessages("  Done  ")

	got, err := NewContentCondition("done", MatchEquals).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewContentCondition("done!", MatchEquals).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestContentCondition_EmptyLog(t *testing.T) {
	t.Parallel()
	got, err := NewContentCondition("anything", MatchContains).Evaluate(&Snapshot{})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestContentCondition_InvalidMatchType(t *testing.T) {
	t.Parallel()
	_, err := NewContentCondition("x", "glob").Evaluate(snapshotWithMessages("x"))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOperator, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// StateCondition
// ---------------------------------------------------------------------------

func TestStateCondition_Equality(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"phase": "review", "score": 7}}

	got, err := NewStateCondition("phase", "review", OpEqual).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewStateCondition("phase", "draft", OpNotEqual).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestStateCondition_MissingKey(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{}}

	got, err := NewStateCondition("absent", "x", OpEqual).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)

	// A missing key only ever satisfies "!=".
	got, err = NewStateCondition("absent", "x", OpNotEqual).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewStateCondition("absent", 1, OpGreater).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestStateCondition_NumericComparison(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"score": 7}}

	got, err := NewStateCondition("score", 5, OpGreater).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	// Mixed numeric types are coerced.
	got, err = NewStateCondition("score", 7.0, OpLessEqual).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestStateCondition_NonNumericComparison(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"phase": "review"}}
	_, err := NewStateCondition("phase", 1, OpGreater).Evaluate(snap)
	assert.Error(t, err)
}

func TestStateCondition_In(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"phase": "review", "score": 7}}

	got, err := NewStateCondition("phase", []any{"draft", "review"}, OpIn).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = NewStateCondition("score", []any{1, 2, 3}, OpIn).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)

	// String container means substring membership.
	got, err = NewStateCondition("phase", "under review by editors", OpIn).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestStateCondition_InInvalidContainer(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"score": 7}}
	_, err := NewStateCondition("score", 42, OpIn).Evaluate(snap)
	assert.Error(t, err)
}

func TestStateCondition_InvalidOperator(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"x": 1}}
	_, err := NewStateCondition("x", 1, "between").Evaluate(snap)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOperator, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// CompositeCondition
// ---------------------------------------------------------------------------

func TestCompositeCondition_And(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"a": 1, "b": 2}}

	cond := NewCompositeCondition(LogicAnd,
		NewStateCondition("a", 1, OpEqual),
		NewStateCondition("b", 2, OpEqual),
	)
	got, err := cond.Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)

	cond = NewCompositeCondition(LogicAnd,
		NewStateCondition("a", 1, OpEqual),
		NewStateCondition("b", 99, OpEqual),
	)
	got, err = cond.Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCompositeCondition_Or(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{State: map[string]any{"a": 1}}

	cond := NewCompositeCondition(LogicOr,
		NewStateCondition("a", 99, OpEqual),
		NewStateCondition("a", 1, OpEqual),
	)
	got, err := cond.Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompositeCondition_ShortCircuits(t *testing.T) {
	t.Parallel()
	evaluated := false
	spy := ConditionFunc(func(snap *Snapshot) (bool, error) {
		evaluated = true
		return true, nil
	})

	snap := &Snapshot{State: map[string]any{}}
	got, err := NewCompositeCondition(LogicAnd,
		NewLambdaCondition(func(*Snapshot) bool { return false }),
		spy,
	).Evaluate(snap)
	require.NoError(t, err)
	assert.False(t, got)
	assert.False(t, evaluated, "AND must not evaluate past the first false child")

	got, err = NewCompositeCondition(LogicOr,
		NewLambdaCondition(func(*Snapshot) bool { return true }),
		spy,
	).Evaluate(snap)
	require.NoError(t, err)
	assert.True(t, got)
	assert.False(t, evaluated, "OR must not evaluate past the first true child")
}

func TestCompositeCondition_ChildErrorPropagates(t *testing.T) {
	t.Parallel()
	cond := NewCompositeCondition(LogicAnd,
		NewStateCondition("x", 1, "bogus"),
	)
	_, err := cond.Evaluate(&Snapshot{State: map[string]any{"x": 1}})
	assert.Error(t, err)
}

func TestCompositeCondition_InvalidLogic(t *testing.T) {
	t.Parallel()
	_, err := NewCompositeCondition("XOR").Evaluate(&Snapshot{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOperator, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// Lambda and MaxRetries
// ---------------------------------------------------------------------------

func TestLambdaCondition(t *testing.T) {
	t.Parallel()
	cond := NewLambdaCondition(func(snap *Snapshot) bool {
		return len(snap.Messages) == 0
	})
	got, err := cond.Evaluate(&Snapshot{})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMaxRetriesCondition(t *testing.T) {
	t.Parallel()
	cond := NewMaxRetriesCondition(3)

	got, err := cond.Evaluate(&Snapshot{RetryCount: 2})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = cond.Evaluate(&Snapshot{RetryCount: 3})
	require.NoError(t, err)
	assert.False(t, got)
}
