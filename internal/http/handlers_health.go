package httpx

import (
	"net/http"
	"strconv"
)

const livenessBody = `{"status":"ok"}`

// healthHandler answers the process liveness probe. It never touches plugins;
// plugin health is served by /api/v1/health.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(livenessBody)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(livenessBody))
}
