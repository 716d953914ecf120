package k8s

import "github.com/prometheus/client_golang/prometheus"

var opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dashboard_backend",
	Subsystem: "k8s",
	Name:      "ops_total",
	Help:      "Total Kubernetes API operations by operation and status.",
}, []string{"operation", "status"})

func init() {
	prometheus.MustRegister(opsTotal)
}

// observe records the outcome of one API operation and passes err through.
func observe(op string, err error) error {
	if err != nil {
		opsTotal.WithLabelValues(op, "error").Inc()
	} else {
		opsTotal.WithLabelValues(op, "success").Inc()
	}
	return err
}
