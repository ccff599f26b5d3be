package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/autovolt/voice-bridge-go/internal/errors"
	"github.com/autovolt/voice-bridge-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// decodeJSON reads a JSON body into dst. Body-limit overruns surface as
// PAYLOAD_TOO_LARGE, anything else unreadable as a validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.PayloadTooLarge()
		}
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}
