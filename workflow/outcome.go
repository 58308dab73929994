package workflow

import "fmt"

// Outcome statuses reported by NormalizeOutcome.
const (
	OutcomeSuccess = "success"
)

// NodeOutcome is the normalized shape of an agent result. Agents may return
// plain strings, maps, or arbitrary values; the executor reduces them to a
// content string for downstream task input while keeping the raw value in
// the context's result map.
type NodeOutcome struct {
	// Content is the textual payload handed to downstream nodes.
	Content string `json:"content"`
	// Status is the agent-reported status, defaulting to "success".
	Status string `json:"status"`
	// Raw is the unmodified agent return value.
	Raw any `json:"-"`
}

// NormalizeOutcome converts a heterogeneous agent return value into a
// NodeOutcome:
//
//   - string: becomes the content with status "success"
//   - map[string]any: "content" and "status" keys are extracted; a missing
//     content key falls back to the map's string rendering
//   - NodeOutcome (or *NodeOutcome): passed through
//   - anything else: rendered via fmt.Sprintf("%v", ...)
func NormalizeOutcome(result any) NodeOutcome {
	switch v := result.(type) {
	case NodeOutcome:
		if v.Status == "" {
			v.Status = OutcomeSuccess
		}
		return v
	case *NodeOutcome:
		out := *v
		if out.Raw == nil {
			out.Raw = v
		}
		if out.Status == "" {
			out.Status = OutcomeSuccess
		}
		return out
	case string:
		return NodeOutcome{Content: v, Status: OutcomeSuccess, Raw: v}
	case map[string]any:
		out := NodeOutcome{Status: OutcomeSuccess, Raw: v}
		if content, ok := v["content"].(string); ok {
			out.Content = content
		} else {
			out.Content = fmt.Sprintf("%v", v)
		}
		if status, ok := v["status"].(string); ok && status != "" {
			out.Status = status
		}
		return out
	default:
		return NodeOutcome{
			Content: fmt.Sprintf("%v", v),
			Status:  OutcomeSuccess,
			Raw:     v,
		}
	}
}
