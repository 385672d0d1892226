package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

// Pinger is the part of the store readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SchemaVersioner reports the applied migration version.
type SchemaVersioner interface {
	SchemaVersion() (version uint, dirty bool, err error)
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking database connectivity and the applied schema version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, db Pinger, schema SchemaVersioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: "ok",
			Schema:   "unknown",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if schema != nil {
			v, dirty, err := schema.SchemaVersion()
			switch {
			case err != nil:
				checks.Schema = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			case dirty:
				checks.Schema = "error: dirty at version " + strconv.FormatUint(uint64(v), 10)
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			case v == 0:
				checks.Schema = "error: no migrations applied"
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			default:
				checks.Schema = "v" + strconv.FormatUint(uint64(v), 10)
			}
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
