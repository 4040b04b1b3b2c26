package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "petcli",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP exchanges by method and status class (error for transport failures).",
		},
		[]string{"method", "status"},
	)

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "petcli",
			Subsystem: "client",
			Name:      "token_refreshes_total",
			Help:      "Token refresh cycles by outcome.",
		},
		[]string{"result"},
	)

	sessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "petcli",
			Subsystem: "client",
			Name:      "sessions_expired_total",
			Help:      "Sessions cleared after a failed refresh.",
		},
	)
)

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
