package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(expiryJobsTotal, expiryQueueDepth) }

var (
	expiryJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_expiry_jobs_total",
			Help: "Deferred expiry jobs by lifecycle event.",
		},
		[]string{"event"}, // 'scheduled', 'schedule_failed', 'claimed', 'acked', 'failed', 'requeued', 'poisoned'
	)

	expiryQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_expiry_queue_depth",
			Help: "Jobs currently waiting in the delay queue, by state.",
		},
		[]string{"state"}, // 'due', 'inflight'
	)
)

func IncExpiryJob(event string) {
	expiryJobsTotal.WithLabelValues(norm(event)).Inc()
}

func AddExpiryJobs(event string, n int) {
	expiryJobsTotal.WithLabelValues(norm(event)).Add(float64(n))
}

func SetExpiryQueueDepth(due, inflight int64) {
	expiryQueueDepth.WithLabelValues("due").Set(float64(due))
	expiryQueueDepth.WithLabelValues("inflight").Set(float64(inflight))
}
