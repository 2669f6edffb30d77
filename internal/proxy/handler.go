package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/magmedia/brewbuddy/internal/metrics"
	"github.com/magmedia/brewbuddy/internal/middleware"
)

const maxRequestBody = 1 << 20

type statusCoder interface {
	StatusCode() int
}

type chatHandler struct {
	relay *Relay
}

// NewHTTPHandler exposes the relay on HTTP with CORS applied. Both the server
// and the CGI binary mount this handler, so they behave identically.
func NewHTTPHandler(relay *Relay, allowedOrigins []string) http.Handler {
	return middleware.CORS(allowedOrigins)(&chatHandler{relay: relay})
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.relay.metrics.Record(0, metrics.OutcomeClientError)
		w.Header().Set("Allow", "POST, OPTIONS")
		writeFailure(w, &ClientInputError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		h.relay.metrics.Record(0, metrics.OutcomeClientError)
		writeFailure(w, readError(err))
		return
	}

	res, err := h.relay.Forward(r.Context(), body)
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}

func readError(err error) *ClientInputError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &ClientInputError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large"}
	}
	return &ClientInputError{Message: "Failed to read request body"}
}

// writeFailure answers with the error's own status code, or 500.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	writeError(w, status, err.Error())
}

// HealthCheck reports liveness and seconds since started.
func HealthCheck(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(started).Seconds(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
