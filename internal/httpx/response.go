// Package httpx writes the JSON envelopes shared by handlers and middleware.
package httpx

import (
	"encoding/json"
	"net/http"

	"social-service/internal/apperror"
)

// Envelope is the body of every successful response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func Success(w http.ResponseWriter, status int, data interface{}, message string) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// Error writes err with the status of its kind. Unknown errors become a
// generic internal error so storage details never reach the client.
func Error(w http.ResponseWriter, err error) *apperror.Error {
	appErr := apperror.From(err)
	JSON(w, appErr.HTTPStatus(), appErr)
	return appErr
}
