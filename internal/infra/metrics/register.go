package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each file's init until MustRegister runs.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister hands every queued collector to reg, or to the default
// registry when reg is nil. Only the first call has an effect.
func MustRegister(reg ...prometheus.Registerer) {
	once.Do(func() {
		r := prometheus.DefaultRegisterer
		if len(reg) > 0 && reg[0] != nil {
			r = reg[0]
		}
		r.MustRegister(collectors...)
	})
}

// norm keeps label values from callers in one spelling.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
