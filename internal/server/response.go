package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/raaihank/jsonnymous/internal/engine"
)

// envelope is the response body shared by every API route
type envelope struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorResponse maps an operation error to its status and envelope
func errorResponse(err error) (int, envelope) {
	var (
		malformed *engine.ErrMalformedInput
		invalid   *engine.ErrInvalidOptions
	)
	switch {
	case errors.As(err, &malformed):
		return http.StatusBadRequest, envelope{Error: "Malformed " + malformed.What, Details: err.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, envelope{Error: "Invalid option: " + invalid.Field, Details: invalid.Message}
	default:
		return engine.HTTPStatus(err), envelope{Error: "Internal server error", Details: err.Error()}
	}
}

// decodeBody reads a JSON request body into v
func decodeBody(r *http.Request, v any) (int, *envelope) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, &envelope{Error: "Request body too large"}
		}
		return http.StatusBadRequest, &envelope{Error: "Failed to read request body", Details: err.Error()}
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return http.StatusBadRequest, &envelope{Error: "Invalid JSON in request body", Details: err.Error()}
	}
	return 0, nil
}

// payload returns the bytes of a field that holds either an embedded JSON
// value or a string carrying the document text
func payload(raw json.RawMessage) []byte {
	var text string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &text) == nil {
		return []byte(text)
	}
	return raw
}

func missing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
