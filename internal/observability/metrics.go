package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_api_requests_total",
			Help: "Total number of REST calls issued by the chat client.",
		},
		[]string{"op", "outcome"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatclient_api_request_duration_seconds",
			Help:    "REST call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	sendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_send_failures_total",
			Help: "Total number of sends rolled back after a failure.",
		},
	)
	pollTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_poll_ticks_total",
			Help: "Total number of message poll ticks.",
		},
		[]string{"outcome"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatclient_ws_active_connections",
			Help: "Number of open real-time channels.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_ws_events_total",
			Help: "Total number of real-time channel events.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		sendFailuresTotal,
		pollTicksTotal,
		wsActiveConnections,
		wsEventsTotal,
	)
}

func ObserveAPIRequest(op, outcome string, seconds float64) {
	apiRequestsTotal.WithLabelValues(op, outcome).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(seconds)
}

func IncSendFailure() {
	sendFailuresTotal.Inc()
}

func IncPollTick(outcome string) {
	pollTicksTotal.WithLabelValues(outcome).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}
