// Package metrics defines the Prometheus metrics exported by the auth
// service. All of them register with the default registry on import and are
// served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cityauth"

// AuthAttemptsTotal counts signup and login attempts.
// Labels:
//   - operation: "signup" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Signup and login attempts by outcome.",
	},
	[]string{"operation", "result"},
)

// TokensIssuedTotal counts access tokens minted.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Access tokens issued.",
	},
)

// TokenValidationsTotal counts bearer token checks.
// Label:
//   - result: "valid", "expired" or "invalid"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Bearer token validations by outcome.",
	},
	[]string{"result"},
)

// RoleRequestsTotal counts role change workflow events.
// Label:
//   - event: "submitted", "approved" or "rejected"
var RoleRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_requests_total",
		Help:      "Role change requests submitted and decided.",
	},
	[]string{"event"},
)

// UserCacheLookupsTotal counts user cache lookups.
// Label:
//   - result: "hit" or "miss"
var UserCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_cache_lookups_total",
		Help:      "User cache lookups by result.",
	},
	[]string{"result"},
)

// HousekeepingDeletedTotal counts resolved role requests purged by the
// housekeeping loop.
var HousekeepingDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "housekeeping_deleted_total",
		Help:      "Resolved role change requests deleted by housekeeping.",
	},
)

// HTTPRequestDuration observes request latency.
// Labels:
//   - route: the ServeMux pattern that matched, or "unmatched"
//   - code: the response status
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "code"},
)

// HTTPMiddleware records HTTPRequestDuration. It must wrap the ServeMux
// directly so the matched pattern is visible on the request afterwards.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(sw.code)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Result maps an error to the "success"/"failure" label value.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
