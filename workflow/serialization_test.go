package workflow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSerializableGraph(t *testing.T) *WorkflowGraph {
	t.Helper()
	g, err := NewGraphBuilder("pipeline").
		AddNodeWithMetadata("research", "researcher", map[string]any{"depth": "deep"}).
		AddNode("write", "writer").
		AddNode("review", "reviewer").
		AddEdge("research", "write").
		AddConditionalEdge("write", "review", NewMaxRetriesCondition(2)).
		Build()
	require.NoError(t, err)
	return g
}

func TestGraphDefinition_RoundTrip(t *testing.T) {
	t.Parallel()
	g := buildSerializableGraph(t)

	def := g.ToDefinition()
	assert.Equal(t, "pipeline", def.Name)
	require.Len(t, def.Nodes, 3)
	require.Len(t, def.Edges, 2)
	assert.Equal(t, "deep", def.Nodes[0].Metadata["depth"])

	restored, err := FromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, g.NodeNames(), restored.NodeNames())
	assert.Equal(t, "researcher", restored.GetNode("research").AgentName)
	require.Len(t, restored.Edges(), 2)

	// Conditions are lossy: the restored back edge is unconditional.
	assert.Nil(t, restored.Edges()[1].Condition)
}

func TestGraphDefinition_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	def := buildSerializableGraph(t).ToDefinition()

	jsonStr, err := def.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(jsonStr)
	require.NoError(t, err)
	assert.Equal(t, def.Name, parsed.Name)
	assert.Equal(t, def.Nodes, parsed.Nodes)
	assert.Equal(t, def.Edges, parsed.Edges)
}

func TestGraphDefinition_YAMLRoundTrip(t *testing.T) {
	t.Parallel()
	def := buildSerializableGraph(t).ToDefinition()

	yamlStr, err := def.ToYAML()
	require.NoError(t, err)

	parsed, err := FromYAML(yamlStr)
	require.NoError(t, err)
	assert.Equal(t, def.Name, parsed.Name)
	require.Len(t, parsed.Nodes, 3)
	assert.Equal(t, "researcher", parsed.Nodes[0].Agent)
}

func TestFromJSON_Invalid(t *testing.T) {
	t.Parallel()
	_, err := FromJSON("{not json")
	assert.Error(t, err)

	_, err = FromJSON(`{"name":"x","nodes":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one node")
}

func TestValidateGraphDefinition(t *testing.T) {
	t.Parallel()
	base := func() *GraphDefinition {
		return &GraphDefinition{
			Name: "wf",
			Nodes: []NodeDefinition{
				{Name: "a", Agent: "agent-a"},
				{Name: "b", Agent: "agent-b"},
			},
			Edges: []EdgeDefinition{{Source: "a", Target: "b"}},
		}
	}

	assert.NoError(t, ValidateGraphDefinition(base()))

	def := base()
	def.Name = ""
	assert.ErrorContains(t, ValidateGraphDefinition(def), "name is required")

	def = base()
	def.Nodes[1].Name = "a"
	assert.ErrorContains(t, ValidateGraphDefinition(def), "duplicate node")

	def = base()
	def.Nodes[0].Agent = ""
	assert.ErrorContains(t, ValidateGraphDefinition(def), "agent is required")

	def = base()
	def.Edges[0].Target = "ghost"
	assert.ErrorContains(t, ValidateGraphDefinition(def), "does not exist")

	def = base()
	def.Edges[0].Target = "a"
	assert.ErrorContains(t, ValidateGraphDefinition(def), "self-loop")
}

func TestGraphDefinition_FileRoundTrip(t *testing.T) {
	t.Parallel()
	def := buildSerializableGraph(t).ToDefinition()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "wf.json")
	require.NoError(t, def.SaveToJSONFile(jsonPath))
	fromJSON, err := LoadFromJSONFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, def.Name, fromJSON.Name)

	yamlPath := filepath.Join(dir, "wf.yaml")
	require.NoError(t, def.SaveToYAMLFile(yamlPath))
	fromYAML, err := LoadFromYAMLFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, def.Name, fromYAML.Name)

	_, err = LoadFromJSONFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
