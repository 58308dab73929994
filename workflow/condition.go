package workflow

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/cquehl/agentgraph/types"
)

// Condition is a predicate over a point-in-time snapshot of an execution
// context, used to gate edge traversal. Implementations must be pure: the
// executor may evaluate them eagerly or short-circuit composites, and an
// evaluation error is treated as "do not traverse" rather than aborting
// the run.
type Condition interface {
	Evaluate(snap *Snapshot) (bool, error)
}

// ConditionFunc adapts a plain function to the Condition interface.
type ConditionFunc func(snap *Snapshot) (bool, error)

// Evaluate implements Condition.
func (f ConditionFunc) Evaluate(snap *Snapshot) (bool, error) {
	return f(snap)
}

// Comparison operators accepted by MessageCountCondition and StateCondition.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpIn           = "in"
)

// Match types accepted by ContentCondition.
const (
	MatchContains = "contains"
	MatchRegex    = "regex"
	MatchEquals   = "equals"
)

// Composite logic accepted by CompositeCondition.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// MessageCountCondition compares the number of accumulated messages to a
// fixed count.
type MessageCountCondition struct {
	Count    int
	Operator string
}

// NewMessageCountCondition creates a message-count condition. Operator must
// be one of ==, !=, >, <, >=, <=; anything else is a configuration error
// reported at evaluation time.
func NewMessageCountCondition(count int, operator string) *MessageCountCondition {
	return &MessageCountCondition{Count: count, Operator: operator}
}

// Evaluate implements Condition.
func (c *MessageCountCondition) Evaluate(snap *Snapshot) (bool, error) {
	n := len(snap.Messages)
	switch c.Operator {
	case OpGreaterEqual:
		return n >= c.Count, nil
	case OpLessEqual:
		return n <= c.Count, nil
	case OpEqual:
		return n == c.Count, nil
	case OpNotEqual:
		return n != c.Count, nil
	case OpGreater:
		return n > c.Count, nil
	case OpLess:
		return n < c.Count, nil
	default:
		return false, types.NewError(types.ErrInvalidOperator,
			fmt.Sprintf("invalid message count operator %q", c.Operator))
	}
}

// ContentCondition tests the last message's content against a pattern.
// All match types are case-insensitive.
type ContentCondition struct {
	Pattern   string
	MatchType string

	compileOnce sync.Once
	re          *regexp.Regexp
	reErr       error
}

// NewContentCondition creates a content condition. MatchType is one of
// "contains" (substring), "regex" (search), or "equals" (full match after
// trimming whitespace).
func NewContentCondition(pattern, matchType string) *ContentCondition {
	return &ContentCondition{Pattern: pattern, MatchType: matchType}
}

// Evaluate implements Condition. An empty message log never matches.
func (c *ContentCondition) Evaluate(snap *Snapshot) (bool, error) {
	if snap.LastMessage == nil {
		return false, nil
	}
	content := snap.LastMessage.Content

	switch c.MatchType {
	case MatchContains:
		return strings.Contains(strings.ToLower(content), strings.ToLower(c.Pattern)), nil
	case MatchRegex:
		c.compileOnce.Do(func() {
			c.re, c.reErr = regexp.Compile("(?i)" + c.Pattern)
		})
		if c.reErr != nil {
			return false, fmt.Errorf("invalid content pattern %q: %w", c.Pattern, c.reErr)
		}
		return c.re.MatchString(content), nil
	case MatchEquals:
		return strings.EqualFold(strings.TrimSpace(content), strings.TrimSpace(c.Pattern)), nil
	default:
		return false, types.NewError(types.ErrInvalidOperator,
			fmt.Sprintf("invalid content match type %q", c.MatchType))
	}
}

// StateCondition compares a state map entry to a fixed value.
type StateCondition struct {
	Key      string
	Value    any
	Operator string
}

// NewStateCondition creates a state condition. Operator is one of ==, !=,
// >, <, >=, <=, or "in" (membership of the state value in Value, which must
// be a string, slice, or array).
func NewStateCondition(key string, value any, operator string) *StateCondition {
	return &StateCondition{Key: key, Value: value, Operator: operator}
}

// Evaluate implements Condition. Ordering comparisons require both sides to
// be numeric; a missing key only ever satisfies "!=".
func (c *StateCondition) Evaluate(snap *Snapshot) (bool, error) {
	actual, exists := snap.State[c.Key]

	switch c.Operator {
	case OpEqual:
		return exists && reflect.DeepEqual(actual, c.Value), nil
	case OpNotEqual:
		return !exists || !reflect.DeepEqual(actual, c.Value), nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		if !exists {
			return false, nil
		}
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false, fmt.Errorf("state key %q: operator %q requires numeric operands", c.Key, c.Operator)
		}
		switch c.Operator {
		case OpGreater:
			return a > b, nil
		case OpLess:
			return a < b, nil
		case OpGreaterEqual:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	case OpIn:
		if !exists {
			return false, nil
		}
		return contains(c.Value, actual)
	default:
		return false, types.NewError(types.ErrInvalidOperator,
			fmt.Sprintf("invalid state operator %q", c.Operator))
	}
}

// toFloat coerces numeric types to float64 for ordering comparisons.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// contains reports whether needle is a member of container (substring for
// strings, element for slices and arrays).
func contains(container, needle any) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			s = fmt.Sprintf("%v", needle)
		}
		return strings.Contains(c, s), nil
	default:
		rv := reflect.ValueOf(container)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false, fmt.Errorf("operator %q requires a string, slice, or array container, got %T", OpIn, container)
		}
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(rv.Index(i).Interface(), needle) {
				return true, nil
			}
		}
		return false, nil
	}
}

// CompositeCondition combines child conditions with AND (all true) or OR
// (any true). Evaluation short-circuits; children are expected to be pure.
type CompositeCondition struct {
	Conditions []Condition
	Logic      string
}

// NewCompositeCondition creates a composite condition with the given logic,
// one of "AND" or "OR".
func NewCompositeCondition(logic string, conditions ...Condition) *CompositeCondition {
	return &CompositeCondition{Conditions: conditions, Logic: logic}
}

// Evaluate implements Condition.
func (c *CompositeCondition) Evaluate(snap *Snapshot) (bool, error) {
	switch c.Logic {
	case LogicAnd:
		for _, cond := range c.Conditions {
			ok, err := cond.Evaluate(snap)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case LogicOr:
		for _, cond := range c.Conditions {
			ok, err := cond.Evaluate(snap)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, types.NewError(types.ErrInvalidOperator,
			fmt.Sprintf("invalid composite logic %q", c.Logic))
	}
}

// NewLambdaCondition wraps an arbitrary caller-supplied predicate for cases
// not covered by the built-in variants.
func NewLambdaCondition(fn func(snap *Snapshot) bool) Condition {
	return ConditionFunc(func(snap *Snapshot) (bool, error) {
		return fn(snap), nil
	})
}

// MaxRetriesCondition is true while the evaluating edge's source node has
// been retried fewer than MaxRetries times. It is intended for gating
// retry-loop edges in cyclic graphs.
type MaxRetriesCondition struct {
	MaxRetries int
}

// NewMaxRetriesCondition creates a max-retries condition.
func NewMaxRetriesCondition(maxRetries int) *MaxRetriesCondition {
	return &MaxRetriesCondition{MaxRetries: maxRetries}
}

// Evaluate implements Condition.
func (c *MaxRetriesCondition) Evaluate(snap *Snapshot) (bool, error) {
	return snap.RetryCount < c.MaxRetries, nil
}
