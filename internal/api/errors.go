package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorResponse is the body of every non-2xx answer. Code is the status
// text in snake case, e.g. "service_unavailable".
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorCode(status int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// respond encodes v as the JSON body. A nil v sends headers only.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client may be gone
}

func fail(w http.ResponseWriter, status int, message string) {
	respond(w, status, ErrorResponse{Status: status, Code: errorCode(status), Message: message})
}
