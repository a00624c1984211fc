package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the API-level Prometheus collectors.
type Metrics struct {
	Logins    *prometheus.CounterVec
	Transfers *prometheus.CounterVec
	WSClients prometheus.Gauge
}

// NewMetrics registers the API collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Logins: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerd_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		Transfers: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerd_transfers_total",
			Help: "Transfer attempts by result.",
		}, []string{"result"}),
		WSClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ledgerd_ws_clients",
			Help: "Currently connected WebSocket feed clients.",
		}),
	}
}
