package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusByCategory = map[string]int{
	"bad_request":  http.StatusBadRequest,
	"malformed":    http.StatusUnauthorized,
	"expired":      http.StatusUnauthorized,
	"unauthorized": http.StatusUnauthorized,
	"forbidden":    http.StatusForbidden,
	"not_found":    http.StatusNotFound,
	"conflict":     http.StatusConflict,
	"internal":     http.StatusInternalServerError,
}

// Client-facing messages. Unauthorized never says which check failed and
// internal never carries the cause.
var messageByCategory = map[string]string{
	"malformed":    "malformed token",
	"expired":      "token expired",
	"unauthorized": "unauthorized",
	"forbidden":    "forbidden",
	"not_found":    "not found",
	"conflict":     "already exists",
	"internal":     "internal error",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the error taxonomy. For bad requests the error
// text is shown as is, since it only ever describes the caller's input.
func writeError(w http.ResponseWriter, err error) {
	code := common.Category(err)
	status, ok := statusByCategory[code]
	if !ok {
		code, status = "internal", http.StatusInternalServerError
	}

	msg := messageByCategory[code]
	if code == "bad_request" {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
