package types

import "fmt"

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Graph construction error codes
const (
	ErrDuplicateNode ErrorCode = "DUPLICATE_NODE"
	ErrUnknownNode   ErrorCode = "UNKNOWN_NODE"
	ErrSelfLoop      ErrorCode = "SELF_LOOP"
	ErrCyclicGraph   ErrorCode = "CYCLIC_GRAPH"
	ErrInvalidGraph  ErrorCode = "INVALID_GRAPH"
)

// Execution error codes
const (
	ErrNoEntryNode      ErrorCode = "NO_ENTRY_NODE"
	ErrAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	ErrInvalidOperator  ErrorCode = "INVALID_OPERATOR"
	ErrCircuitOpen      ErrorCode = "CIRCUIT_OPEN"
	ErrNodeTimeout      ErrorCode = "NODE_TIMEOUT"
	ErrRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"
	ErrExecutionFailed  ErrorCode = "EXECUTION_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Node      string    `json:"node,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithNode associates the error with a graph node.
func (e *Error) WithNode(node string) *Error {
	e.Node = node
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
