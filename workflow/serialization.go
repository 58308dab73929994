package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GraphDefinition is the serializable form of a workflow graph.
//
// Conditions are arbitrary runtime predicates (including closures) and are
// NOT serialized: an edge restored from a definition is unconditional. This
// is a documented lossy behavior, not something deserialization repairs.
type GraphDefinition struct {
	// Name is the workflow name.
	Name string `json:"name" yaml:"name"`
	// Nodes contains all node definitions.
	Nodes []NodeDefinition `json:"nodes" yaml:"nodes"`
	// Edges contains all edge definitions.
	Edges []EdgeDefinition `json:"edges" yaml:"edges"`
}

// NodeDefinition is the serializable form of a workflow node.
type NodeDefinition struct {
	// Name is the unique node identifier.
	Name string `json:"name" yaml:"name"`
	// Agent is the agent identifier the node is bound to.
	Agent string `json:"agent" yaml:"agent"`
	// Metadata stores additional node information.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// EdgeDefinition is the serializable form of a workflow edge. The edge's
// condition, if any, is omitted (see GraphDefinition).
type EdgeDefinition struct {
	// Source is the node the edge leaves.
	Source string `json:"source" yaml:"source"`
	// Target is the node the edge enters.
	Target string `json:"target" yaml:"target"`
	// Metadata stores additional edge information.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ToDefinition converts the graph to its serializable form. Edge conditions
// are dropped (see GraphDefinition).
func (g *WorkflowGraph) ToDefinition() *GraphDefinition {
	def := &GraphDefinition{
		Name:  g.name,
		Nodes: make([]NodeDefinition, 0, len(g.order)),
		Edges: make([]EdgeDefinition, 0, len(g.edges)),
	}

	for _, name := range g.order {
		node := g.nodes[name]
		def.Nodes = append(def.Nodes, NodeDefinition{
			Name:     node.Name,
			Agent:    node.AgentName,
			Metadata: node.Metadata,
		})
	}
	for _, edge := range g.edges {
		def.Edges = append(def.Edges, EdgeDefinition{
			Source:   edge.Source,
			Target:   edge.Target,
			Metadata: edge.Metadata,
		})
	}
	return def
}

// FromDefinition builds a workflow graph from a definition. All restored
// edges are unconditional.
func FromDefinition(def *GraphDefinition) (*WorkflowGraph, error) {
	if err := ValidateGraphDefinition(def); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	g := NewWorkflowGraph(def.Name)
	for _, node := range def.Nodes {
		if err := g.AddNode(node.Name, node.Agent, node.Metadata); err != nil {
			return nil, err
		}
	}
	for _, edge := range def.Edges {
		if err := g.AddEdge(edge.Source, edge.Target, nil, edge.Metadata); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ValidateGraphDefinition checks a definition for structural problems:
// missing or duplicate node names, missing agent bindings, dangling edge
// references, and self-loops.
func ValidateGraphDefinition(def *GraphDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("workflow must have at least one node")
	}

	names := make(map[string]bool, len(def.Nodes))
	for _, node := range def.Nodes {
		if node.Name == "" {
			return fmt.Errorf("node name is required")
		}
		if names[node.Name] {
			return fmt.Errorf("duplicate node name: %s", node.Name)
		}
		names[node.Name] = true

		if node.Agent == "" {
			return fmt.Errorf("node %s: agent is required", node.Name)
		}
	}

	for _, edge := range def.Edges {
		if !names[edge.Source] {
			return fmt.Errorf("edge source %s does not exist", edge.Source)
		}
		if !names[edge.Target] {
			return fmt.Errorf("edge target %s does not exist", edge.Target)
		}
		if edge.Source == edge.Target {
			return fmt.Errorf("self-loop on node %s is not allowed", edge.Source)
		}
	}
	return nil
}

// ToJSON converts a GraphDefinition to an indented JSON string.
func (d *GraphDefinition) ToJSON() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal graph to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML converts a GraphDefinition to a YAML string.
func (d *GraphDefinition) ToYAML() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal graph to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON creates a validated GraphDefinition from a JSON string.
func FromJSON(jsonStr string) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := json.Unmarshal([]byte(jsonStr), &def); err != nil {
		return nil, fmt.Errorf("unmarshal graph from JSON: %w", err)
	}
	if err := ValidateGraphDefinition(&def); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// FromYAML creates a validated GraphDefinition from a YAML string.
func FromYAML(yamlStr string) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal([]byte(yamlStr), &def); err != nil {
		return nil, fmt.Errorf("unmarshal graph from YAML: %w", err)
	}
	if err := ValidateGraphDefinition(&def); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// LoadFromJSONFile loads a GraphDefinition from a JSON file.
func LoadFromJSONFile(filename string) (*GraphDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromJSON(string(data))
}

// LoadFromYAMLFile loads a GraphDefinition from a YAML file.
func LoadFromYAMLFile(filename string) (*GraphDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromYAML(string(data))
}

// SaveToJSONFile saves a GraphDefinition to a JSON file.
func (d *GraphDefinition) SaveToJSONFile(filename string) error {
	jsonStr, err := d.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(jsonStr), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// SaveToYAMLFile saves a GraphDefinition to a YAML file.
func (d *GraphDefinition) SaveToYAMLFile(filename string) error {
	yamlStr, err := d.ToYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(yamlStr), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
