package metrics

import (
	"popup-shop/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		shopActivationsTotal,
		shopExpiryOutcomesTotal,
		shopsTotal,
		shopNotificationsTotal,
	)
}

var (
	shopActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_activations_total",
			Help: "Committed shop activations by plan.",
		},
		[]string{"plan"}, // 'event', 'season'
	)

	shopExpiryOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_expiry_outcomes_total",
			Help: "Expiry checks by outcome (expired, stale, not_due, not_active, missing).",
		},
		[]string{"outcome"},
	)

	shopsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shops_total",
			Help: "Current number of shops by activation status.",
		},
		[]string{"status"},
	)

	shopNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_notifications_total",
			Help: "Welcome notifications by result (sent, failed, dropped).",
		},
		[]string{"result"},
	)
)

func IncActivation(plan string) {
	shopActivationsTotal.WithLabelValues(norm(plan)).Inc()
}

func IncExpiryOutcome(outcome string) {
	shopExpiryOutcomesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncNotification(result string) {
	shopNotificationsTotal.WithLabelValues(norm(result)).Inc()
}

func SetShopsTotal(counts map[model.ActivationStatus]int) {
	for _, status := range []model.ActivationStatus{model.ActivationStatusActive, model.ActivationStatusInactive} {
		shopsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
