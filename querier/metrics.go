package querier

import (
	"strconv"
	"time"

	"github.com/graphfleet/sgclient/clients/subgraph"
	"github.com/prometheus/client_golang/prometheus"
)

func makeClientMetrics(registerer prometheus.Registerer) subgraph.EventListener {
	requestLatencies := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subgraph",
		Subsystem: "client",
		Name:      "request_latency",
	}, []string{"operation", "status"})
	reorgs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "subgraph",
		Subsystem: "client",
		Name:      "reorgs",
	})
	registerer.MustRegister(requestLatencies, reorgs)

	return &subgraph.SelectiveListener{
		OnResponseCb: func(op string, status int, took time.Duration) {
			statusString := strconv.FormatInt(int64(status), 10)
			requestLatencies.WithLabelValues(op, statusString).Observe(took.Seconds())
		},
		OnReorgDetectedCb: func(uint64) {
			reorgs.Inc()
		},
	}
}
