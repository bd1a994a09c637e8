// Package respond writes JSON bodies and the shared error envelope.
package respond

import (
	"net/http"

	"github.com/goccy/go-json"
)

type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"statusCode","error","message"} where error is the status text.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    msg,
	})
}
