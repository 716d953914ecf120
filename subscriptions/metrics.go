package subscriptions

import "github.com/prometheus/client_golang/prometheus"

var (
	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard_backend",
		Subsystem: "websocket",
		Name:      "connections",
		Help:      "Open websocket connections.",
	})

	subscriptionsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dashboard_backend",
		Subsystem: "websocket",
		Name:      "subscriptions",
		Help:      "Active subscriptions by channel.",
	}, []string{"channel"})

	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard_backend",
		Subsystem: "websocket",
		Name:      "messages_total",
		Help:      "Messages written to websocket clients by channel and status.",
	}, []string{"channel", "status"})

	watchRestartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard_backend",
		Subsystem: "websocket",
		Name:      "watch_restarts_total",
		Help:      "Watches reopened after the API server closed them.",
	}, []string{"channel"})
)

func init() {
	prometheus.MustRegister(connectionsGauge, subscriptionsGauge, messagesTotal, watchRestartsTotal)
}
