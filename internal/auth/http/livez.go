package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Liveness probe returning uptime and version. Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}
