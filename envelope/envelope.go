// Package envelope writes the JSON response body every account endpoint
// returns: {statusCode, data, message, success}.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Response is the wire envelope. Success is derived from StatusCode.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// New builds a response; an empty message becomes "success".
func New(status int, data any, message string) Response {
	if message == "" {
		message = "success"
	}
	return Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}
}

// Error builds a failure response with null data.
func Error(status int, message string) Response {
	return Response{
		StatusCode: status,
		Message:    message,
		Success:    false,
	}
}

// Write sends r with its own status code.
func Write(w http.ResponseWriter, r Response) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(r.StatusCode)
	return json.NewEncoder(w).Encode(r)
}

// WriteData writes a response carrying data.
func WriteData(w http.ResponseWriter, status int, data any, message string) error {
	return Write(w, New(status, data, message))
}

// WriteError writes a response with no data.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return Write(w, Error(status, message))
}
