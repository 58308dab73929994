package workflow

import (
	"context"
	"sync"
)

// AgentRunner is the minimal contract a workflow node needs from an agent:
// run a task and return a result. The result may be a string, a
// map[string]any, a NodeOutcome, or anything else — the executor normalizes
// it via NormalizeOutcome. Chat-completion clients, tool loops, and other
// agent internals are outside the engine's concern.
type AgentRunner interface {
	Run(ctx context.Context, task string) (any, error)
}

// AgentRunnerFunc adapts a plain function to the AgentRunner interface.
type AgentRunnerFunc func(ctx context.Context, task string) (any, error)

// Run implements AgentRunner.
func (f AgentRunnerFunc) Run(ctx context.Context, task string) (any, error) {
	return f(ctx, task)
}

// AgentRegistry resolves a node's agent name to a runner. Resolution happens
// at node-execution time, not at graph-construction time: agents may be
// registered after the graph is built.
type AgentRegistry interface {
	// GetAgent returns the runner registered under name, or false if none.
	GetAgent(name string) (AgentRunner, bool)
}

// InMemoryAgentRegistry is a thread-safe map-backed AgentRegistry.
type InMemoryAgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]AgentRunner
}

// NewInMemoryAgentRegistry creates an empty registry.
func NewInMemoryAgentRegistry() *InMemoryAgentRegistry {
	return &InMemoryAgentRegistry{
		agents: make(map[string]AgentRunner),
	}
}

// Register registers a runner under the given name, replacing any previous
// registration.
func (r *InMemoryAgentRegistry) Register(name string, runner AgentRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[name] = runner
}

// RegisterFunc registers a plain function as an agent.
func (r *InMemoryAgentRegistry) RegisterFunc(name string, fn func(ctx context.Context, task string) (any, error)) {
	r.Register(name, AgentRunnerFunc(fn))
}

// GetAgent implements AgentRegistry.
func (r *InMemoryAgentRegistry) GetAgent(name string) (AgentRunner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.agents[name]
	return runner, ok
}

// Names returns the registered agent names.
func (r *InMemoryAgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}
