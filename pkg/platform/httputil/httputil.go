// Package httputil holds small helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "onboard/pkg/domain-errors"
)

// errorResponse is the wire shape for all error replies.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError writes err as a JSON error response. The status and error code
// come from the domain error taxonomy; internal errors omit the description
// so backend detail never reaches the caller.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(err)
	resp := errorResponse{Error: string(dErrors.CodeOf(err))}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = dErrors.Message(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
