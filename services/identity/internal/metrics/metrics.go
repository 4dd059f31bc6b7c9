package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "identity",
		Name:      "logins_total",
		Help:      "Sign-in attempts by result.",
	}, []string{"result"})

	SSOTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "identity",
		Name:      "sso_tokens_total",
		Help:      "SSO tokens issued and verified, by outcome.",
	}, []string{"op", "result"})

	PurgedSessions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "srik",
		Subsystem: "identity",
		Name:      "purged_refresh_sessions_total",
		Help:      "Expired or revoked refresh sessions deleted by the purge job.",
	})
)
