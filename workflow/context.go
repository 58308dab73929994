package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cquehl/agentgraph/types"
)

// Status represents the lifecycle status of a workflow run.
type Status string

const (
	// StatusPending indicates the run has been created but not started.
	StatusPending Status = "pending"
	// StatusRunning indicates the run is in progress.
	StatusRunning Status = "running"
	// StatusCompleted indicates the run completed successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the run failed.
	StatusFailed Status = "failed"
	// StatusCancelled indicates the run was cancelled by the caller.
	StatusCancelled Status = "cancelled"
)

// Snapshot is a consistent, read-only copy of an execution context handed to
// condition evaluation. It is never mutated after construction, so a
// condition evaluating against it cannot race with concurrently running
// node executions.
type Snapshot struct {
	// State is a copy of the free-form state map.
	State map[string]any
	// Messages is a copy of the accumulated message log.
	Messages []types.Message
	// LastMessage is the most recent message, or nil for an empty log.
	LastMessage *types.Message
	// NodeResults is a copy of the per-node result map.
	NodeResults map[string]any
	// RetryCount is the retry counter of the node the snapshot was taken
	// for (the evaluating edge's source node).
	RetryCount int
}

// ExecutionContext is the mutable, thread-safe run-time state threaded
// through one workflow execution: the accumulated message log, per-node
// results, per-node retry and failure counters, and a free-form state map
// consulted by edge conditions.
//
// Mutating accessors serialize through per-category locks (message lock,
// result lock, counter lock, state lock) rather than a single global lock,
// so unrelated updates from concurrent node executions do not contend.
type ExecutionContext struct {
	// WorkflowID is a generated unique token for correlation and logging.
	WorkflowID string
	// StartTime is when the run was created.
	StartTime time.Time

	statusMu sync.RWMutex
	status   Status
	endTime  time.Time

	stateMu sync.RWMutex
	state   map[string]any

	msgMu    sync.RWMutex
	messages []types.Message

	resultMu    sync.RWMutex
	nodeResults map[string]any

	counterMu     sync.Mutex
	retryCounts   map[string]int
	failureCounts map[string]int
}

// NewExecutionContext creates a fresh execution context seeded with the
// given initial state (which is copied, not aliased).
func NewExecutionContext(initialState map[string]any) *ExecutionContext {
	state := make(map[string]any, len(initialState))
	for k, v := range initialState {
		state[k] = v
	}
	return &ExecutionContext{
		WorkflowID:    uuid.New().String(),
		StartTime:     time.Now(),
		status:        StatusPending,
		state:         state,
		nodeResults:   make(map[string]any),
		retryCounts:   make(map[string]int),
		failureCounts: make(map[string]int),
	}
}

// Status returns the current run status.
func (c *ExecutionContext) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// SetStatus updates the run status.
func (c *ExecutionContext) SetStatus(status Status) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status = status
}

// Finalize records the terminal status and end time of the run. The
// executor calls this exactly once, in a deferred block, regardless of
// success or failure.
func (c *ExecutionContext) Finalize(status Status) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status = status
	c.endTime = time.Now()
}

// EndTime returns when the run finished; zero while it is still running.
func (c *ExecutionContext) EndTime() time.Time {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.endTime
}

// AddMessage appends a message to the run's message log.
func (c *ExecutionContext) AddMessage(msg types.Message) {
	c.msgMu.Lock()
	defer c.msgMu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the message log.
func (c *ExecutionContext) Messages() []types.Message {
	c.msgMu.RLock()
	defer c.msgMu.RUnlock()
	msgs := make([]types.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// MessageCount returns the number of accumulated messages.
func (c *ExecutionContext) MessageCount() int {
	c.msgMu.RLock()
	defer c.msgMu.RUnlock()
	return len(c.messages)
}

// LastMessage returns a copy of the most recent message, or nil for an
// empty log. Downstream nodes receive its content as their task input.
func (c *ExecutionContext) LastMessage() *types.Message {
	c.msgMu.RLock()
	defer c.msgMu.RUnlock()
	if len(c.messages) == 0 {
		return nil
	}
	msg := c.messages[len(c.messages)-1]
	return &msg
}

// SetNodeResult stores a node's most recent raw result, overwriting any
// previous result if the node reruns in a cyclic workflow.
func (c *ExecutionContext) SetNodeResult(node string, result any) {
	c.resultMu.Lock()
	defer c.resultMu.Unlock()
	c.nodeResults[node] = result
}

// NodeResult retrieves a node's most recent result.
func (c *ExecutionContext) NodeResult(node string) (any, bool) {
	c.resultMu.RLock()
	defer c.resultMu.RUnlock()
	result, ok := c.nodeResults[node]
	return result, ok
}

// NodeResults returns a copy of the per-node result map.
func (c *ExecutionContext) NodeResults() map[string]any {
	c.resultMu.RLock()
	defer c.resultMu.RUnlock()
	results := make(map[string]any, len(c.nodeResults))
	for k, v := range c.nodeResults {
		results[k] = v
	}
	return results
}

// SetState sets a state map entry.
func (c *ExecutionContext) SetState(key string, value any) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state[key] = value
}

// State retrieves a state map entry.
func (c *ExecutionContext) State(key string) (any, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	v, ok := c.state[key]
	return v, ok
}

// StateMap returns a copy of the state map.
func (c *ExecutionContext) StateMap() map[string]any {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	state := make(map[string]any, len(c.state))
	for k, v := range c.state {
		state[k] = v
	}
	return state
}

// IncrementRetry increments a node's retry counter and returns the new
// value.
func (c *ExecutionContext) IncrementRetry(node string) int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	c.retryCounts[node]++
	return c.retryCounts[node]
}

// IncrementFailure increments a node's failure counter and returns the new
// value.
func (c *ExecutionContext) IncrementFailure(node string) int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	c.failureCounts[node]++
	return c.failureCounts[node]
}

// RetryCount returns a node's retry counter.
func (c *ExecutionContext) RetryCount(node string) int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	return c.retryCounts[node]
}

// FailureCount returns a node's failure counter.
func (c *ExecutionContext) FailureCount(node string) int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	return c.failureCounts[node]
}

// SeedFailureCount pre-seeds a node's failure counter. It exists for
// callers that carry breaker state across executor instances.
func (c *ExecutionContext) SeedFailureCount(node string, count int) {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	c.failureCounts[node] = count
}

// RetryCounts returns a copy of the per-node retry counters.
func (c *ExecutionContext) RetryCounts() map[string]int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	return copyCounts(c.retryCounts)
}

// FailureCounts returns a copy of the per-node failure counters.
func (c *ExecutionContext) FailureCounts() map[string]int {
	c.counterMu.Lock()
	defer c.counterMu.Unlock()
	return copyCounts(c.failureCounts)
}

// Snapshot builds a consistent point-in-time copy of the context for
// condition evaluation. The node argument selects whose retry counter is
// exposed as Snapshot.RetryCount: the evaluating edge's source node.
func (c *ExecutionContext) Snapshot(node string) *Snapshot {
	return &Snapshot{
		State:       c.StateMap(),
		Messages:    c.Messages(),
		LastMessage: c.LastMessage(),
		NodeResults: c.NodeResults(),
		RetryCount:  c.RetryCount(node),
	}
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}
