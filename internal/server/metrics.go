package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "holdemd",
	Name:      "active_connections",
	Help:      "Live client WebSocket connections.",
})
