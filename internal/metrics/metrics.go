package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptura_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TokensConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_tokens_consumed_total",
			Help: "Total tokens consumed from daily allowances and purchased balances.",
		},
		[]string{"plan"},
	)

	TokenDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_token_denials_total",
			Help: "Total consume attempts rejected for insufficient tokens.",
		},
		[]string{"plan"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_rate_limit_rejections_total",
			Help: "Total requests rejected by the admission rate limiter.",
		},
		[]string{"plan"},
	)

	FeatureChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_feature_checks_total",
			Help: "Total feature entitlement checks by outcome.",
		},
		[]string{"feature", "result"},
	)

	VoiceConversationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptura_voice_conversations_total",
			Help: "Total voice conversation events recorded.",
		},
		[]string{"event", "plan"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TokensConsumedTotal,
		TokenDenialsTotal,
		RateLimitRejectionsTotal,
		FeatureChecksTotal,
		VoiceConversationsTotal,
	)
}
