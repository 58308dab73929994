/*
Package workflow provides a directed-graph task scheduler for multi-agent
orchestration: named nodes bound to agents, optionally condition-gated
edges, and an executor that walks the graph concurrently with retry,
backoff, and circuit-breaker semantics.

# Core types

  - WorkflowGraph      — nodes, edges, structural queries, cycle detection,
    topological sort, advisory validation
  - GraphBuilder       — fluent construction; Build rejects any validation
    warning
  - Condition          — predicate over an execution context snapshot
    (message count, content match, state comparison, composite AND/OR,
    lambda, max-retries)
  - ExecutionContext   — thread-safe run state: message log, node results,
    retry/failure counters, free-form state map
  - WorkflowExecutor   — frontier expansion with bounded concurrency,
    per-node timeout, exponential-backoff retry, and a per-node circuit
    breaker
  - AgentRegistry      — name-to-AgentRunner resolution, late-bound at
    execution time
  - ExecutionHistory   — per-run node execution records with an in-memory
    store
  - Collector          — Prometheus metrics for runs, nodes, retries, and
    breaker rejections

# Execution model

The executor expands the frontier of ready nodes round by round. Nodes in
one frontier run concurrently (bounded by a semaphore) and the next
frontier is computed only after the entire current frontier has settled,
so a diamond-shaped graph joins at the shared downstream node. Each node
executes at most once per run; cyclic graphs re-enter nodes across
separate Execute calls, typically gated by a MaxRetriesCondition.

Graph definitions serialize to JSON and YAML. Edge conditions are runtime
predicates and do not survive a round-trip: reloaded edges are
unconditional.
*/
package workflow
