package catalog

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard_backend",
		Subsystem: "catalog",
		Name:      "refresh_total",
		Help:      "Total catalog refreshes by result.",
	}, []string{"result"})

	editorsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_backend",
		Subsystem: "catalog",
		Name:      "editors",
		Help:      "Number of editor definitions in the current snapshot.",
	})

	samplesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_backend",
		Subsystem: "catalog",
		Name:      "samples",
		Help:      "Number of getting-started samples in the current snapshot.",
	})
)

func init() {
	prometheus.MustRegister(refreshTotal, editorsGauge, samplesGauge)
}
