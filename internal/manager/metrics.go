package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litertlm",
			Subsystem: "manager",
			Name:      "generations_total",
			Help:      "Generate calls by model and outcome.",
		},
		[]string{"model", "outcome"},
	)
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litertlm",
			Subsystem: "manager",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of completed generate calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"model"},
	)
	timeToFirstToken = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litertlm",
			Subsystem: "manager",
			Name:      "time_to_first_token_seconds",
			Help:      "Time to first token reported by engine benchmarks.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"model"},
	)
	loadsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "litertlm",
		Subsystem: "manager",
		Name:      "loads_total",
		Help:      "Engines loaded.",
	})
	evictionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "litertlm",
		Subsystem: "manager",
		Name:      "evictions_total",
		Help:      "Idle engines evicted to fit the memory budget.",
	})
	openSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "litertlm",
		Subsystem: "manager",
		Name:      "open_sessions",
		Help:      "Conversation sessions currently open.",
	})
)

func init() {
	prometheus.MustRegister(generationsTotal, generationDuration, timeToFirstToken, loadsCounter, evictionsCounter, openSessionsGauge)
}

// outcomeOf labels a generate result for generationsTotal.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTooBusy(err):
		return "busy"
	case isContextErr(err):
		return "canceled"
	default:
		return "error"
	}
}
