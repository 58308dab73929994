package workflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cquehl/agentgraph/types"
)

// GraphBuilder provides a fluent API for constructing workflow graphs.
// Construction errors (duplicate nodes, dangling edges, self-loops) are
// collected and reported by Build, so chains never need intermediate error
// checks. Unlike WorkflowGraph.Validate, which only reports warnings, Build
// treats every validation finding as fatal.
type GraphBuilder struct {
	graph  *WorkflowGraph
	errs   []error
	logger *zap.Logger
}

// NewGraphBuilder creates a builder for a graph with the given name.
func NewGraphBuilder(name string) *GraphBuilder {
	return &GraphBuilder{
		graph:  NewWorkflowGraph(name),
		logger: zap.NewNop(),
	}
}

// WithLogger sets a custom logger.
func (b *GraphBuilder) WithLogger(logger *zap.Logger) *GraphBuilder {
	b.logger = logger.With(zap.String("component", "graph_builder"))
	return b
}

// AddNode adds a node bound to the named agent.
func (b *GraphBuilder) AddNode(name, agentName string) *GraphBuilder {
	return b.AddNodeWithMetadata(name, agentName, nil)
}

// AddNodeWithMetadata adds a node carrying a metadata bag.
func (b *GraphBuilder) AddNodeWithMetadata(name, agentName string, metadata map[string]any) *GraphBuilder {
	if err := b.graph.AddNode(name, agentName, metadata); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// AddEdge adds an unconditional edge.
func (b *GraphBuilder) AddEdge(source, target string) *GraphBuilder {
	return b.AddConditionalEdge(source, target, nil)
}

// AddConditionalEdge adds an edge gated by a condition; nil means the edge
// is always traversed.
func (b *GraphBuilder) AddConditionalEdge(source, target string, condition Condition) *GraphBuilder {
	if err := b.graph.AddEdge(source, target, condition, nil); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Build validates the graph and returns it. It fails on any construction
// error and on any validation warning — the builder enforces what the raw
// graph only reports.
func (b *GraphBuilder) Build() (*WorkflowGraph, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("graph construction failed: %w", b.errs[0])
	}

	if warnings := b.graph.Validate(); len(warnings) > 0 {
		return nil, types.NewError(types.ErrInvalidGraph,
			fmt.Sprintf("graph validation failed: %v", warnings))
	}

	b.logger.Info("workflow graph built",
		zap.String("name", b.graph.Name()),
		zap.Int("nodes", b.graph.NodeCount()),
		zap.Int("edges", len(b.graph.Edges())),
	)
	return b.graph, nil
}
