package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/psops/sentry/internal/faults"
)

// writeJSON writes a JSON response to the response writer
func writeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// writeStatus writes data with the given status code
func writeStatus(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = writeJSON(w, data)
}

// writeError sends an error response
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeStatus(w, statusCode, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// writeFault maps a fault kind onto an HTTP status and sends the envelope.
// Inference failures surface as 502 (the upstream model misbehaved),
// data-source failures as 503, everything else as 500.
func writeFault(w http.ResponseWriter, err error) {
	kind := faults.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case faults.KindInferenceUnavailable, faults.KindInferenceMalformedResponse:
		status = http.StatusBadGateway
	case faults.KindDataSourceUnavailable, faults.KindDataSourceQueryError:
		status = http.StatusServiceUnavailable
	}

	writeError(w, status, string(kind), err.Error())
}
