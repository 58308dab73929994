package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes workflow execution metrics. It is optional: an executor
// without a collector skips all recording.
type Collector struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration prometheus.Histogram

	nodeExecutionsTotal *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec
	nodeRetriesTotal    *prometheus.CounterVec
	breakerRejections   *prometheus.CounterVec
}

// NewCollector creates a collector registered against reg. Passing nil uses
// the default prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		executionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_executions_total",
				Help:      "Total number of workflow executions",
			},
			[]string{"workflow", "status"},
		),
		executionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_execution_duration_seconds",
				Help:      "Workflow execution duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
		),
		nodeExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_node_executions_total",
				Help:      "Total number of node executions",
			},
			[]string{"node", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_node_duration_seconds",
				Help:      "Node execution duration in seconds, including retries",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"node"},
		),
		nodeRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_node_retries_total",
				Help:      "Total number of node retry attempts",
			},
			[]string{"node"},
		),
		breakerRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_circuit_breaker_rejections_total",
				Help:      "Total number of executions rejected by an open circuit breaker",
			},
			[]string{"node"},
		),
	}
}

// RecordExecution records a finished workflow run.
func (c *Collector) RecordExecution(workflow string, status Status, duration time.Duration) {
	c.executionsTotal.WithLabelValues(workflow, string(status)).Inc()
	c.executionDuration.Observe(duration.Seconds())
}

// RecordNodeExecution records a finished node execution.
func (c *Collector) RecordNodeExecution(node string, status Status, duration time.Duration) {
	c.nodeExecutionsTotal.WithLabelValues(node, string(status)).Inc()
	c.nodeDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt for a node.
func (c *Collector) RecordRetry(node string) {
	c.nodeRetriesTotal.WithLabelValues(node).Inc()
}

// RecordBreakerRejection records a circuit-breaker fast failure for a node.
func (c *Collector) RecordBreakerRejection(node string) {
	c.breakerRejections.WithLabelValues(node).Inc()
}
