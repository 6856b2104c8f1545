package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerTransactionsTotal,
		ledgerAmountTotal,
	)
}

var (
	ledgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Ledger transitions by resulting status (pending/verified).",
		},
		[]string{"status"},
	)

	ledgerAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_amount_total",
			Help: "Sum of recorded amounts in minor units, labeled by source (checkout/activation).",
		},
		[]string{"source"},
	)
)

func IncTransaction(status string) {
	ledgerTransactionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddLedgerAmount(source string, amount int64) {
	ledgerAmountTotal.WithLabelValues(norm(source)).Add(float64(amount))
}
