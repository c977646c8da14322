// Package metrics declares the prometheus collectors registered by the replicate driver
// (§7 observability). Registration happens here and at driver startup; serving them over
// HTTP is the job of whatever outer CLI/server embeds this module, which is out of scope
// (§9 Non-goals: "a web server wrapper").
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ExportQueueBytes tracks bytes currently queued per export writer, the live signal
	// behind the bounded-queue backpressure property (§4.9).
	ExportQueueBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "josh",
		Subsystem: "export",
		Name:      "queue_bytes_in_flight",
		Help:      "Bytes currently queued for an export writer.",
	}, []string{"writer"})

	// ReplicateDuration observes wall-clock seconds spent running one replicate to
	// completion (§4.8).
	ReplicateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "josh",
		Subsystem: "replicate",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a single replicate run.",
		Buckets:   prometheus.DefBuckets,
	})

	// CycleErrorsTotal counts dependency cycles detected during attribute resolution
	// (§4.5, §7).
	CycleErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "josh",
		Subsystem: "scheduler",
		Name:      "cycle_errors_total",
		Help:      "Count of CycleDetectedError occurrences across all replicates.",
	})

	// ProducerBlockedSeconds accumulates time an export Produce call spent blocked on a
	// full bounded queue, the direct observable for backpressure taking effect.
	ProducerBlockedSeconds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "josh",
		Subsystem: "export",
		Name:      "producer_blocked_seconds_total",
		Help:      "Cumulative seconds a producer spent blocked pushing into a full export queue.",
	}, []string{"writer"})
)

// Register adds every collector in this package to reg. Calling it twice with the same
// registry returns prometheus's duplicate-registration error; callers should register
// exactly once at driver startup.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ExportQueueBytes,
		ReplicateDuration,
		CycleErrorsTotal,
		ProducerBlockedSeconds,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
