package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/estatelink/tre-backend/internal/errors"
	"github.com/estatelink/tre-backend/internal/middleware"
	"github.com/estatelink/tre-backend/pkg/logger"
)

// Responses share one envelope: successes carry "status": "success" and a
// data object; failures carry "status": "fail" (4xx) or "error" (5xx) and a
// message.

const maxBodyBytes = 1 << 20 // 1 MiB

type successEnvelope struct {
	Status  string         `json:"status"`
	Results *int           `json:"results,omitempty"`
	Token   string         `json:"token,omitempty"`
	Data    map[string]any `json:"data"`
}

type failureEnvelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData renders a success envelope whose data object holds the named
// value.
func writeData(w http.ResponseWriter, status int, key string, value any) {
	writeJSON(w, status, successEnvelope{
		Status: "success",
		Data:   map[string]any{key: value},
	})
}

// writeList renders a success envelope for a collection, with the result
// count alongside the data.
func writeList(w http.ResponseWriter, key string, count int, value any) {
	writeJSON(w, http.StatusOK, successEnvelope{
		Status:  "success",
		Results: &count,
		Data:    map[string]any{key: value},
	})
}

// writeAuth renders a success envelope carrying a bearer token next to the
// authenticated record.
func writeAuth(w http.ResponseWriter, status int, token, key string, value any) {
	writeJSON(w, status, successEnvelope{
		Status: "success",
		Token:  token,
		Data:   map[string]any{key: value},
	})
}

// ErrorWriter builds the shared failure renderer. Client errors echo their
// message; server errors are logged with their cause and masked.
func ErrorWriter(log *logger.Logger) middleware.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		serviceErr := errors.GetServiceError(err)
		if serviceErr == nil {
			serviceErr = errors.Internal("unexpected error", err)
		}

		if serviceErr.HTTPStatus >= http.StatusInternalServerError {
			log.WithContext(r.Context()).WithError(err).WithFields(map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Error("request failed")
			writeJSON(w, serviceErr.HTTPStatus, failureEnvelope{
				Status:  "error",
				Message: "something went wrong",
			})
			return
		}

		writeJSON(w, serviceErr.HTTPStatus, failureEnvelope{
			Status:  "fail",
			Message: serviceErr.Message,
			Details: serviceErr.Details,
		})
	}
}

// decodeJSON reads a request body into dst, rejecting unknown payloads that
// do not parse and oversized bodies.
func decodeJSON(body io.Reader, dst any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return errors.Validation("unable to read request body")
	}
	if len(data) == 0 {
		return errors.Validation("request body is required")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Validation(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// notFoundHandler answers unmatched routes in the failure envelope.
func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, failureEnvelope{
			Status:  "fail",
			Message: fmt.Sprintf("cannot find %s on this server", r.URL.Path),
		})
	})
}
