// Package agentgraph provides a top-level convenience entry point for the
// workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/cquehl/agentgraph"
//
//	g, err := agentgraph.NewGraph("pipeline").
//		AddNode("research", "researcher").
//		AddNode("write", "writer").
//		AddEdge("research", "write").
//		Build()
//
// This is a thin wrapper around the workflow package; both produce identical
// results. Use this package when you prefer the shorter import path.
package agentgraph

import (
	"go.uber.org/zap"

	"github.com/cquehl/agentgraph/workflow"
)

// Graph is the workflow graph type.
type Graph = workflow.WorkflowGraph

// Executor drives workflow graph execution.
type Executor = workflow.WorkflowExecutor

// Registry resolves node agent names to runners.
type Registry = workflow.AgentRegistry

// Condition gates edge traversal.
type Condition = workflow.Condition

// NewGraph starts a fluent graph builder.
func NewGraph(name string) *workflow.GraphBuilder {
	return workflow.NewGraphBuilder(name)
}

// NewRegistry creates an empty in-memory agent registry.
func NewRegistry() *workflow.InMemoryAgentRegistry {
	return workflow.NewInMemoryAgentRegistry()
}

// NewExecutor creates an executor with the default configuration.
func NewExecutor(graph *Graph, registry Registry, logger *zap.Logger) *Executor {
	return workflow.NewWorkflowExecutor(graph, registry, workflow.DefaultExecutorConfig(), logger)
}
