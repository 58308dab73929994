// Package types provides core types shared across the agentgraph framework.
// This package has ZERO dependencies on other agentgraph packages to avoid
// circular imports. All other packages should import types from here.
package types
