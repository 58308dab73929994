package workflow

import (
	"fmt"

	"github.com/cquehl/agentgraph/types"
)

// WorkflowNode represents a single node in a workflow graph. A node is bound
// to an agent by name; the agent is resolved through an AgentRegistry at
// execution time, not at graph construction time.
type WorkflowNode struct {
	// Name is the unique identifier for this node within its graph.
	Name string
	// AgentName is the opaque identifier resolved via the agent registry.
	AgentName string
	// Metadata stores additional node information; the engine does not
	// interpret its contents.
	Metadata map[string]any
}

// WorkflowEdge is a directed link between two nodes. A nil Condition means
// the edge is always traversed.
type WorkflowEdge struct {
	// Source is the name of the node the edge leaves.
	Source string
	// Target is the name of the node the edge enters.
	Target string
	// Condition gates traversal; nil means unconditional.
	Condition Condition
	// Metadata stores additional edge information.
	Metadata map[string]any
}

// WorkflowGraph owns the full set of nodes and edges of a workflow. Nodes
// are immutable once added and node names are unique. Edges are append-only
// and must reference already-added nodes; self-loops are rejected. Cycles
// are permitted (for iterative workflows) and detectable via IsCyclic.
type WorkflowGraph struct {
	name string
	// nodes maps node names to node instances
	nodes map[string]*WorkflowNode
	// order preserves node insertion order for deterministic listings
	order []string
	// edges holds all edges in insertion order
	edges []*WorkflowEdge
	// out maps a node name to its outgoing edges
	out map[string][]*WorkflowEdge
	// in maps a node name to its incoming edges
	in map[string][]*WorkflowEdge
}

// NewWorkflowGraph creates a new empty workflow graph.
func NewWorkflowGraph(name string) *WorkflowGraph {
	return &WorkflowGraph{
		name:  name,
		nodes: make(map[string]*WorkflowNode),
		out:   make(map[string][]*WorkflowEdge),
		in:    make(map[string][]*WorkflowEdge),
	}
}

// Name returns the graph name.
func (g *WorkflowGraph) Name() string {
	return g.name
}

// AddNode adds a node to the graph. Adding a node whose name already exists
// is a configuration error.
func (g *WorkflowGraph) AddNode(name, agentName string, metadata map[string]any) error {
	if _, exists := g.nodes[name]; exists {
		return types.NewError(types.ErrDuplicateNode,
			fmt.Sprintf("node %q already exists", name)).WithNode(name)
	}
	g.nodes[name] = &WorkflowNode{
		Name:      name,
		AgentName: agentName,
		Metadata:  metadata,
	}
	g.order = append(g.order, name)
	return nil
}

// AddEdge adds a directed edge from source to target. Both endpoints must
// already exist and self-loops are rejected. A nil condition means the edge
// is always traversed.
func (g *WorkflowGraph) AddEdge(source, target string, condition Condition, metadata map[string]any) error {
	if source == target {
		return types.NewError(types.ErrSelfLoop,
			fmt.Sprintf("self-loop on node %q is not allowed", source)).WithNode(source)
	}
	if _, exists := g.nodes[source]; !exists {
		return types.NewError(types.ErrUnknownNode,
			fmt.Sprintf("edge source %q does not exist", source)).WithNode(source)
	}
	if _, exists := g.nodes[target]; !exists {
		return types.NewError(types.ErrUnknownNode,
			fmt.Sprintf("edge target %q does not exist", target)).WithNode(target)
	}
	edge := &WorkflowEdge{
		Source:    source,
		Target:    target,
		Condition: condition,
		Metadata:  metadata,
	}
	g.edges = append(g.edges, edge)
	g.out[source] = append(g.out[source], edge)
	g.in[target] = append(g.in[target], edge)
	return nil
}

// GetNode retrieves a node by name, or nil if it does not exist.
func (g *WorkflowGraph) GetNode(name string) *WorkflowNode {
	return g.nodes[name]
}

// NodeNames returns all node names in insertion order.
func (g *WorkflowGraph) NodeNames() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// NodeCount returns the number of nodes in the graph.
func (g *WorkflowGraph) NodeCount() int {
	return len(g.nodes)
}

// Edges returns all edges in insertion order.
func (g *WorkflowGraph) Edges() []*WorkflowEdge {
	edges := make([]*WorkflowEdge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// GetEdgesFrom returns the outgoing edges of a node in insertion order.
func (g *WorkflowGraph) GetEdgesFrom(name string) []*WorkflowEdge {
	edges := make([]*WorkflowEdge, len(g.out[name]))
	copy(edges, g.out[name])
	return edges
}

// GetSuccessors returns the names of the nodes directly reachable from the
// given node, in edge insertion order.
func (g *WorkflowGraph) GetSuccessors(name string) []string {
	succ := make([]string, 0, len(g.out[name]))
	for _, e := range g.out[name] {
		succ = append(succ, e.Target)
	}
	return succ
}

// GetPredecessors returns the names of the nodes with an edge into the
// given node, in edge insertion order.
func (g *WorkflowGraph) GetPredecessors(name string) []string {
	pred := make([]string, 0, len(g.in[name]))
	for _, e := range g.in[name] {
		pred = append(pred, e.Source)
	}
	return pred
}

// GetEntryNodes returns the nodes with no incoming edges, in insertion order.
func (g *WorkflowGraph) GetEntryNodes() []string {
	var entries []string
	for _, name := range g.order {
		if len(g.in[name]) == 0 {
			entries = append(entries, name)
		}
	}
	return entries
}

// GetExitNodes returns the nodes with no outgoing edges, in insertion order.
func (g *WorkflowGraph) GetExitNodes() []string {
	var exits []string
	for _, name := range g.order {
		if len(g.out[name]) == 0 {
			exits = append(exits, name)
		}
	}
	return exits
}

// IsCyclic reports whether the graph contains at least one directed cycle.
func (g *WorkflowGraph) IsCyclic() bool {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	for _, name := range g.order {
		if !visited[name] {
			if g.hasCycleDFS(name, visited, recStack) {
				return true
			}
		}
	}
	return false
}

// hasCycleDFS performs DFS looking for a back edge.
func (g *WorkflowGraph) hasCycleDFS(name string, visited, recStack map[string]bool) bool {
	visited[name] = true
	recStack[name] = true

	for _, e := range g.out[name] {
		if !visited[e.Target] {
			if g.hasCycleDFS(e.Target, visited, recStack) {
				return true
			}
		} else if recStack[e.Target] {
			return true
		}
	}

	recStack[name] = false
	return false
}

// TopologicalSort returns the node names in an order consistent with the
// edge partial order. It fails with a CYCLIC_GRAPH error if the graph is
// cyclic; call IsCyclic first when cycles are expected.
func (g *WorkflowGraph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		inDegree[name] = len(g.in[name])
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, name)

		for _, e := range g.out[name] {
			inDegree[e.Target]--
			if inDegree[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil, types.NewError(types.ErrCyclicGraph,
			"topological sort is undefined for cyclic graphs")
	}
	return sorted, nil
}

// Validate performs advisory structural checks and returns a list of
// warnings. It never fails: callers that want validation to be fatal should
// build the graph through GraphBuilder, whose Build rejects any warning.
//
// Checks: weak connectivity, presence of entry nodes, and (for acyclic
// graphs only) presence of exit nodes.
func (g *WorkflowGraph) Validate() []string {
	var warnings []string

	if len(g.nodes) == 0 {
		warnings = append(warnings, "graph has no nodes")
		return warnings
	}

	if !g.isWeaklyConnected() {
		warnings = append(warnings, "graph has disconnected components")
	}

	if len(g.GetEntryNodes()) == 0 {
		warnings = append(warnings, "graph has no entry nodes (every node has incoming edges)")
	}

	// Exit nodes are only meaningful for acyclic graphs; a cyclic workflow
	// legitimately terminates through a condition rather than an exit node.
	if !g.IsCyclic() && len(g.GetExitNodes()) == 0 {
		warnings = append(warnings, "acyclic graph has no exit nodes")
	}

	return warnings
}

// isWeaklyConnected reports whether every node is reachable from the first
// added node when edge direction is ignored.
func (g *WorkflowGraph) isWeaklyConnected() bool {
	if len(g.order) == 0 {
		return true
	}

	reached := make(map[string]bool, len(g.nodes))
	queue := []string{g.order[0]}
	reached[g.order[0]] = true

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, e := range g.out[name] {
			if !reached[e.Target] {
				reached[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
		for _, e := range g.in[name] {
			if !reached[e.Source] {
				reached[e.Source] = true
				queue = append(queue, e.Source)
			}
		}
	}

	return len(reached) == len(g.nodes)
}
