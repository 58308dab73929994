package workflow

import (
	"context"
	"errors"

	"github.com/cquehl/agentgraph/types"
)

// hasCode reports whether err (or anything it wraps) is a *types.Error with
// the given code.
func hasCode(err error, code types.ErrorCode) bool {
	for err != nil {
		var typed *types.Error
		if !errors.As(err, &typed) {
			return false
		}
		if typed.Code == code {
			return true
		}
		err = typed.Unwrap()
	}
	return false
}

// IsCircuitOpen reports whether err is a circuit-breaker rejection. Callers
// can use it to distinguish a fast-failed node from a plain
// exhausted-retries failure.
func IsCircuitOpen(err error) bool {
	return hasCode(err, types.ErrCircuitOpen)
}

// IsNodeTimeout reports whether err is a per-node attempt timeout.
func IsNodeTimeout(err error) bool {
	return hasCode(err, types.ErrNodeTimeout)
}

// IsRetriesExhausted reports whether err is a node failure after all retry
// attempts were consumed.
func IsRetriesExhausted(err error) bool {
	return hasCode(err, types.ErrRetriesExhausted)
}

// isFatal reports whether a node failure must abort the whole frontier:
// circuit-breaker rejections and caller cancellation, as opposed to
// transient sibling failures that the run can survive.
func isFatal(err error) bool {
	return IsCircuitOpen(err) || errors.Is(err, context.Canceled)
}
