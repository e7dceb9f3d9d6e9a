package metrics

import "github.com/prometheus/client_golang/prometheus"

// Planner outcomes.
const (
	PlanOK            = "ok"
	PlanEmptyOutput   = "empty_output"
	PlanUnparseable   = "unparseable"
	PlanNotObject     = "not_object"
	PlanMissingAggs   = "missing_aggs"
	PlanGenerateError = "generation_error"
)

// Generation and pipeline Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragbot",
			Name:      "generation_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "kind", "status"}, // kind: "complete" / "stream"
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragbot",
			Name:      "generation_request_duration_seconds",
			Help:      "Time until the completion (or the stream) was opened",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model", "kind"},
	)

	GenerationFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragbot",
			Name:      "generation_fragments_total",
			Help:      "Non-empty streamed fragments received",
		},
		[]string{"model"},
	)

	PlannerOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragbot",
			Name:      "planner_outcomes_total",
			Help:      "Query planner results by outcome",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragbot",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Answer pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers generation, planner and stage metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationFragmentsTotal)
	prometheus.MustRegister(PlannerOutcomesTotal)
	prometheus.MustRegister(PipelineStageDuration)
	pipelineMetricsRegistered = true
}
