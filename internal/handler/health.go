package handler

import (
	"net/http"
	"time"
)

// Health reports liveness only; it never touches the stores.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}
