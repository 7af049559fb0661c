package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK           = "ok"
	OutcomeLostUpdate   = "lost_update"
	OutcomeWorkerFailed = "worker_failed"
	OutcomeTimeout      = "timeout"
	OutcomeCanceled     = "canceled"
)

var (
	Acquisitions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spinmutex_acquisitions_total",
		Help: "The total number of lock acquisitions made by stress workers",
	})

	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spinmutex_runs_total",
		Help: "The total number of stress runs by outcome",
	}, []string{"outcome"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spinmutex_run_duration_seconds",
		Help:    "The duration of a stress run from spawn to final read",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

func init() {
	prometheus.MustRegister(Acquisitions, Runs, RunDuration)
}
