package workflow

import (
	"sync"
	"time"
)

// NodeExecution records the execution of a single node within one run,
// covering all retry attempts.
type NodeExecution struct {
	Node      string        `json:"node"`
	Agent     string        `json:"agent"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    Status        `json:"status"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
}

// ExecutionHistory records the complete execution path of one workflow run.
type ExecutionHistory struct {
	ExecutionID string           `json:"execution_id"`
	Workflow    string           `json:"workflow"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Duration    time.Duration    `json:"duration"`
	Status      Status           `json:"status"`
	Nodes       []*NodeExecution `json:"nodes"`
	Error       string           `json:"error,omitempty"`
	mu          sync.RWMutex
}

// NewExecutionHistory creates a history for one run of the named workflow.
func NewExecutionHistory(executionID, workflow string) *ExecutionHistory {
	return &ExecutionHistory{
		ExecutionID: executionID,
		Workflow:    workflow,
		StartTime:   time.Now(),
		Status:      StatusRunning,
		Nodes:       make([]*NodeExecution, 0),
	}
}

// RecordNodeStart records the start of a node execution and returns the
// record for later completion via RecordNodeEnd.
func (h *ExecutionHistory) RecordNodeStart(node, agent string) *NodeExecution {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := &NodeExecution{
		Node:      node,
		Agent:     agent,
		StartTime: time.Now(),
		Status:    StatusRunning,
	}
	h.Nodes = append(h.Nodes, rec)
	return rec
}

// RecordNodeEnd records the end of a node execution.
func (h *ExecutionHistory) RecordNodeEnd(rec *NodeExecution, attempts int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec.EndTime = time.Now()
	rec.Duration = rec.EndTime.Sub(rec.StartTime)
	rec.Attempts = attempts

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
	} else {
		rec.Status = StatusCompleted
	}
}

// Complete marks the run as finished.
func (h *ExecutionHistory) Complete(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.EndTime = time.Now()
	h.Duration = h.EndTime.Sub(h.StartTime)
	h.Status = status
	if err != nil {
		h.Error = err.Error()
	}
}

// GetNodes returns a copy of the node execution records.
func (h *ExecutionHistory) GetNodes() []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes := make([]*NodeExecution, len(h.Nodes))
	copy(nodes, h.Nodes)
	return nodes
}

// GetNodeByName returns the first execution record for a node, or nil.
func (h *ExecutionHistory) GetNodeByName(node string) *NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rec := range h.Nodes {
		if rec.Node == node {
			return rec
		}
	}
	return nil
}

// ExecutionHistoryStore stores and queries execution histories in memory.
// Persistence beyond process lifetime is an external collaborator's concern.
type ExecutionHistoryStore struct {
	histories map[string]*ExecutionHistory
	mu        sync.RWMutex
}

// NewExecutionHistoryStore creates an empty store.
func NewExecutionHistoryStore() *ExecutionHistoryStore {
	return &ExecutionHistoryStore{
		histories: make(map[string]*ExecutionHistory),
	}
}

// Save saves an execution history, replacing any previous entry for the
// same execution ID.
func (s *ExecutionHistoryStore) Save(history *ExecutionHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[history.ExecutionID] = history
}

// Get retrieves an execution history by execution ID.
func (s *ExecutionHistoryStore) Get(executionID string) (*ExecutionHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[executionID]
	return h, ok
}

// ListByWorkflow returns all histories for the named workflow.
func (s *ExecutionHistoryStore) ListByWorkflow(workflow string) []*ExecutionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionHistory
	for _, h := range s.histories {
		if h.Workflow == workflow {
			result = append(result, h)
		}
	}
	return result
}

// ListByStatus returns histories with the given status.
func (s *ExecutionHistoryStore) ListByStatus(status Status) []*ExecutionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionHistory
	for _, h := range s.histories {
		if h.Status == status {
			result = append(result, h)
		}
	}
	return result
}

// ListByTimeRange returns histories that started within [start, end].
func (s *ExecutionHistoryStore) ListByTimeRange(start, end time.Time) []*ExecutionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionHistory
	for _, h := range s.histories {
		if !h.StartTime.Before(start) && !h.StartTime.After(end) {
			result = append(result, h)
		}
	}
	return result
}
