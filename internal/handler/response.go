package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"model-gateway/internal/gateway"
)

// Envelope is the JSON wrapper every REST response uses.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   *ErrorBody             `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta"`
}

// ErrorBody carries the message and wire code of a failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{
		Success: true,
		Data:    data,
		Meta:    meta(),
	})
}

func writeError(w http.ResponseWriter, err *gateway.Error) {
	writeJSON(w, err.HTTPStatus(), Envelope{
		Success: false,
		Error: &ErrorBody{
			Message: err.Message,
			Code:    err.WireCode(),
		},
		Meta: meta(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func meta() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}
