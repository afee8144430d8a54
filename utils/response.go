package utils

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope for err and returns the status used.
func WriteError(w http.ResponseWriter, err error) int {
	status, message := StatusOf(err)
	write(w, status, envelope{Success: false, Error: message})
	return status
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields when
// strict is set.
func DecodeJSON(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return &AppError{Status: http.StatusBadRequest, Message: "Invalid request payload", Err: err}
	}
	return nil
}
