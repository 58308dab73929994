package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cquehl/agentgraph/types"
)

const tracerName = "github.com/cquehl/agentgraph/workflow"

// ExecutorConfig configures a WorkflowExecutor. Zero values are replaced by
// the corresponding DefaultExecutorConfig values.
type ExecutorConfig struct {
	// MaxConcurrent bounds how many node executions are in flight at once.
	MaxConcurrent int
	// DefaultTimeout is the per-attempt timeout for a node execution.
	DefaultTimeout time.Duration
	// MaxRetries is the number of attempts per node execution.
	MaxRetries int
	// CircuitBreakerThreshold is the failure count at which a node is
	// rejected without attempting execution.
	CircuitBreakerThreshold int
	// BackoffInitialDelay is the delay before the second attempt; the delay
	// doubles on each subsequent attempt.
	BackoffInitialDelay time.Duration
	// BackoffMaxDelay caps the exponential backoff delay.
	BackoffMaxDelay time.Duration
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		DefaultTimeout:          300 * time.Second,
		MaxRetries:              3,
		CircuitBreakerThreshold: 5,
		BackoffInitialDelay:     1 * time.Second,
		BackoffMaxDelay:         30 * time.Second,
	}
}

// WorkflowExecutor drives the execution of a workflow graph: it expands the
// frontier of ready nodes round by round, executes independent nodes
// concurrently (bounded by a semaphore), applies per-node retry with
// exponential backoff, trips a circuit breaker after repeated failures, and
// evaluates outgoing edge conditions to compute the next frontier.
//
// Each node executes at most once per run: membership in the per-run visited
// set is recorded before execution, so a node reached via multiple incoming
// edges in the same expansion runs a single time and acts as a fan-in
// barrier. Cyclic graphs re-enter nodes only across separate Execute calls.
type WorkflowExecutor struct {
	graph    *WorkflowGraph
	registry AgentRegistry
	config   ExecutorConfig
	logger   *zap.Logger
	tracer   oteltrace.Tracer

	// sem is the sole admission-control mechanism bounding in-flight node
	// executions; exactly one per executor instance.
	sem *semaphore.Weighted

	metrics      *Collector
	historyStore *ExecutionHistoryStore
}

// NewWorkflowExecutor creates an executor for the given graph. The registry
// resolves node agent names at execution time. A nil logger defaults to
// zap.NewNop().
func NewWorkflowExecutor(graph *WorkflowGraph, registry AgentRegistry, config ExecutorConfig, logger *zap.Logger) *WorkflowExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultExecutorConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaults.DefaultTimeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = defaults.CircuitBreakerThreshold
	}
	if config.BackoffInitialDelay <= 0 {
		config.BackoffInitialDelay = defaults.BackoffInitialDelay
	}
	if config.BackoffMaxDelay <= 0 {
		config.BackoffMaxDelay = defaults.BackoffMaxDelay
	}

	return &WorkflowExecutor{
		graph:        graph,
		registry:     registry,
		config:       config,
		logger:       logger.With(zap.String("component", "workflow_executor")),
		tracer:       otel.Tracer(tracerName),
		sem:          semaphore.NewWeighted(int64(config.MaxConcurrent)),
		historyStore: NewExecutionHistoryStore(),
	}
}

// SetMetrics attaches a metrics collector. Must be called before Execute.
func (e *WorkflowExecutor) SetMetrics(collector *Collector) {
	e.metrics = collector
}

// HistoryStore returns the store holding this executor's run histories.
func (e *WorkflowExecutor) HistoryStore() *ExecutionHistoryStore {
	return e.historyStore
}

// Execute runs the workflow for the given task. initialState seeds the
// context's state map and may be nil; entryNode overrides the graph's entry
// nodes and may be empty.
//
// The returned context is populated even on failure: its status, message
// log, node results, and retry/failure counters describe exactly what
// happened. Execute does not impose a whole-run timeout — wrap ctx with one
// if needed; only individual node attempts are bounded by DefaultTimeout.
func (e *WorkflowExecutor) Execute(ctx context.Context, task string, initialState map[string]any, entryNode string) (execCtx *ExecutionContext, err error) {
	execCtx = NewExecutionContext(initialState)
	execCtx.AddMessage(types.NewUserMessage(task))

	ctx, span := e.tracer.Start(ctx, "workflow.execute",
		oteltrace.WithAttributes(
			attribute.String("workflow.name", e.graph.Name()),
			attribute.String("workflow.id", execCtx.WorkflowID),
		))
	defer span.End()

	history := NewExecutionHistory(execCtx.WorkflowID, e.graph.Name())

	e.logger.Info("starting workflow execution",
		zap.String("workflow_id", execCtx.WorkflowID),
		zap.String("workflow", e.graph.Name()),
		zap.Int("nodes", e.graph.NodeCount()),
	)

	defer func() {
		status := StatusCompleted
		if err != nil {
			status = StatusFailed
			if errors.Is(err, context.Canceled) {
				status = StatusCancelled
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		execCtx.Finalize(status)
		history.Complete(status, err)
		e.historyStore.Save(history)

		if e.metrics != nil {
			e.metrics.RecordExecution(e.graph.Name(), status, execCtx.EndTime().Sub(execCtx.StartTime))
		}

		if err != nil {
			e.logger.Error("workflow execution failed",
				zap.String("workflow_id", execCtx.WorkflowID),
				zap.Error(err),
			)
		} else {
			e.logger.Info("workflow execution completed",
				zap.String("workflow_id", execCtx.WorkflowID),
				zap.Duration("duration", execCtx.EndTime().Sub(execCtx.StartTime)),
			)
		}
	}()

	frontier, err := e.startFrontier(entryNode)
	if err != nil {
		return execCtx, err
	}

	execCtx.SetStatus(StatusRunning)

	if err = e.expandFrontiers(ctx, frontier, execCtx, history); err != nil {
		return execCtx, err
	}
	return execCtx, nil
}

// startFrontier determines the initial frontier: the explicit entry node if
// given, otherwise the graph's entry nodes. An empty frontier is a
// configuration error.
func (e *WorkflowExecutor) startFrontier(entryNode string) ([]string, error) {
	if entryNode != "" {
		if e.graph.GetNode(entryNode) == nil {
			return nil, types.NewError(types.ErrUnknownNode,
				fmt.Sprintf("entry node %q does not exist", entryNode)).WithNode(entryNode)
		}
		return []string{entryNode}, nil
	}

	entries := e.graph.GetEntryNodes()
	if len(entries) == 0 {
		return nil, types.NewError(types.ErrNoEntryNode,
			"graph has no entry nodes and none was specified")
	}
	return entries, nil
}

// expandFrontiers runs the work-list loop: execute the current frontier,
// compute the next one from edge conditions, and repeat until the frontier
// is empty. Computing the next frontier is deliberately deferred until the
// entire current frontier has settled — there is no partial-frontier
// propagation.
func (e *WorkflowExecutor) expandFrontiers(ctx context.Context, frontier []string, execCtx *ExecutionContext, history *ExecutionHistory) error {
	visited := make(map[string]bool)

	for len(frontier) > 0 {
		// Visited membership is recorded before execution so a node routed
		// to by two in-flight siblings is scheduled at most once.
		batch := make([]string, 0, len(frontier))
		for _, name := range frontier {
			if visited[name] {
				continue
			}
			visited[name] = true
			batch = append(batch, name)
		}
		if len(batch) == 0 {
			return nil
		}

		e.logger.Debug("executing frontier",
			zap.String("workflow_id", execCtx.WorkflowID),
			zap.Strings("nodes", batch),
		)

		completed, err := e.executeFrontier(ctx, batch, execCtx, history)
		if err != nil {
			return err
		}

		frontier = e.nextFrontier(completed, execCtx)
	}
	return nil
}

// executeFrontier executes one frontier and returns the names of the nodes
// that completed successfully. A single-node frontier propagates its node's
// failure directly. In a multi-node frontier the whole batch is awaited
// first (the frontier barrier); then a fatal failure — circuit breaker open
// or caller cancellation — aborts the run, while transient sibling failures
// are logged, recorded in the context's counters, and survived.
func (e *WorkflowExecutor) executeFrontier(ctx context.Context, batch []string, execCtx *ExecutionContext, history *ExecutionHistory) ([]string, error) {
	if len(batch) == 1 {
		if err := e.executeSingleNode(ctx, batch[0], execCtx, history); err != nil {
			return nil, err
		}
		return batch, nil
	}

	errs := make([]error, len(batch))
	var wg sync.WaitGroup
	for i, name := range batch {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = e.executeSingleNode(ctx, name, execCtx, history)
		}(i, name)
	}
	wg.Wait()

	// A dead caller context means the sibling failures above are not
	// survivable: without this check a frontier killed by the caller's
	// deadline would yield zero completed nodes and the run would end as
	// if it had succeeded.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("frontier aborted: %w", err)
	}

	for _, err := range errs {
		if err != nil && isFatal(err) {
			return nil, err
		}
	}

	completed := make([]string, 0, len(batch))
	for i, name := range batch {
		if errs[i] != nil {
			e.logger.Warn("node failed within concurrent frontier, siblings continue",
				zap.String("workflow_id", execCtx.WorkflowID),
				zap.String("node", name),
				zap.Error(errs[i]),
			)
			continue
		}
		completed = append(completed, name)
	}
	return completed, nil
}

// nextFrontier computes the union of the completed nodes' outgoing edges
// whose conditions evaluate true, deduplicated and order-preserving.
func (e *WorkflowExecutor) nextFrontier(completed []string, execCtx *ExecutionContext) []string {
	var next []string
	seen := make(map[string]bool)

	for _, name := range completed {
		for _, edge := range e.graph.GetEdgesFrom(name) {
			if seen[edge.Target] {
				continue
			}
			if e.evaluateEdge(edge, execCtx) {
				seen[edge.Target] = true
				next = append(next, edge.Target)
			}
		}
	}
	return next
}

// evaluateEdge decides whether an edge is traversed. A nil condition is
// always true. A condition that fails to evaluate — by returning an error or
// by panicking, since LambdaCondition accepts arbitrary caller predicates —
// is logged and treated as false rather than failing the run.
func (e *WorkflowExecutor) evaluateEdge(edge *WorkflowEdge, execCtx *ExecutionContext) (pass bool) {
	if edge.Condition == nil {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("edge condition panicked, treating as false",
				zap.String("workflow_id", execCtx.WorkflowID),
				zap.String("source", edge.Source),
				zap.String("target", edge.Target),
				zap.Any("panic", r),
			)
			pass = false
		}
	}()

	ok, err := edge.Condition.Evaluate(execCtx.Snapshot(edge.Source))
	if err != nil {
		e.logger.Warn("edge condition evaluation failed, treating as false",
			zap.String("workflow_id", execCtx.WorkflowID),
			zap.String("source", edge.Source),
			zap.String("target", edge.Target),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// executeSingleNode runs one node: circuit breaker check, semaphore
// admission, agent resolution, then up to MaxRetries attempts with
// exponential backoff. On success the raw result is stored and an
// assistant message appended; on exhaustion the node's failure counter is
// incremented and the last error propagated.
func (e *WorkflowExecutor) executeSingleNode(ctx context.Context, name string, execCtx *ExecutionContext, history *ExecutionHistory) (err error) {
	node := e.graph.GetNode(name)
	if node == nil {
		return types.NewError(types.ErrUnknownNode,
			fmt.Sprintf("node %q does not exist", name)).WithNode(name)
	}

	// Fail fast before attempting execution or consuming a retry slot.
	if failures := execCtx.FailureCount(name); failures >= e.config.CircuitBreakerThreshold {
		if e.metrics != nil {
			e.metrics.RecordBreakerRejection(name)
		}
		e.logger.Warn("circuit breaker open, rejecting node execution",
			zap.String("workflow_id", execCtx.WorkflowID),
			zap.String("node", name),
			zap.Int("failures", failures),
		)
		return types.NewError(types.ErrCircuitOpen,
			fmt.Sprintf("circuit breaker open for node %q: %d failures (threshold %d)",
				name, failures, e.config.CircuitBreakerThreshold)).WithNode(name)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire execution slot for node %q: %w", name, err)
	}
	defer e.sem.Release(1)

	ctx, span := e.tracer.Start(ctx, "workflow.node",
		oteltrace.WithAttributes(
			attribute.String("workflow.id", execCtx.WorkflowID),
			attribute.String("workflow.node", name),
			attribute.String("workflow.agent", node.AgentName),
		))
	defer span.End()

	rec := history.RecordNodeStart(name, node.AgentName)
	attempts := 0
	start := time.Now()
	defer func() {
		history.RecordNodeEnd(rec, attempts, err)
		if e.metrics != nil {
			status := StatusCompleted
			if err != nil {
				status = StatusFailed
			}
			e.metrics.RecordNodeExecution(name, status, time.Since(start))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	agent, ok := e.registry.GetAgent(node.AgentName)
	if !ok || agent == nil {
		return types.NewError(types.ErrAgentNotFound,
			fmt.Sprintf("no agent registered under %q for node %q", node.AgentName, name)).WithNode(name)
	}

	// Default task assembly policy: the last message's content. Richer
	// context assembly is an extension point for callers wrapping their
	// agents, not the engine's concern.
	task := ""
	if last := execCtx.LastMessage(); last != nil {
		task = last.Content
	}

	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		attempts = attempt + 1

		result, attemptErr := e.runAttempt(ctx, agent, task)
		if attemptErr == nil {
			outcome := NormalizeOutcome(result)
			execCtx.SetNodeResult(name, result)
			execCtx.AddMessage(types.NewAssistantMessage(outcome.Content).
				WithNode(name).
				WithMetadata(map[string]any{"attempt": attempt + 1, "status": outcome.Status}))

			e.logger.Debug("node execution succeeded",
				zap.String("workflow_id", execCtx.WorkflowID),
				zap.String("node", name),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		// Caller cancellation is not a node failure; abort without
		// consuming further attempts.
		if ctx.Err() != nil {
			return fmt.Errorf("node %q aborted: %w", name, ctx.Err())
		}

		lastErr = attemptErr
		retries := execCtx.IncrementRetry(name)
		if e.metrics != nil {
			e.metrics.RecordRetry(name)
		}
		e.logger.Warn("node attempt failed",
			zap.String("workflow_id", execCtx.WorkflowID),
			zap.String("node", name),
			zap.Int("attempt", attempt+1),
			zap.Int("retries", retries),
			zap.Error(attemptErr),
		)

		if attempt < e.config.MaxRetries-1 {
			if err := e.backoff(ctx, attempt); err != nil {
				return fmt.Errorf("node %q aborted during backoff: %w", name, err)
			}
		}
	}

	failures := execCtx.IncrementFailure(name)
	e.logger.Error("node failed after exhausting retries",
		zap.String("workflow_id", execCtx.WorkflowID),
		zap.String("node", name),
		zap.Int("attempts", e.config.MaxRetries),
		zap.Int("failures", failures),
		zap.Error(lastErr),
	)
	return types.NewError(types.ErrRetriesExhausted,
		fmt.Sprintf("node %q failed after %d attempts", name, e.config.MaxRetries)).
		WithNode(name).
		WithCause(lastErr)
}

// runAttempt executes one agent call bounded by the per-attempt timeout.
func (e *WorkflowExecutor) runAttempt(ctx context.Context, agent AgentRunner, task string) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.DefaultTimeout)
	defer cancel()

	result, err := agent.Run(attemptCtx, task)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, types.NewError(types.ErrNodeTimeout,
				fmt.Sprintf("agent call exceeded %s", e.config.DefaultTimeout)).
				WithRetryable(true).
				WithCause(err)
		}
		return nil, err
	}
	return result, nil
}

// backoff sleeps for BackoffInitialDelay * 2^attempt, capped at
// BackoffMaxDelay, honoring ctx cancellation.
func (e *WorkflowExecutor) backoff(ctx context.Context, attempt int) error {
	delay := e.config.BackoffInitialDelay << uint(attempt)
	if delay > e.config.BackoffMaxDelay || delay <= 0 {
		delay = e.config.BackoffMaxDelay
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
