// Package respond provides the JSON response envelope and rendering helpers.
// No external library is used — only encoding/json.
package respond

import (
	"encoding/json"
	"net/http"
)

const contentType = "application/json"

// Error kinds, one per failure class. Every error response carries exactly
// one of these in its "error" field so callers can branch without parsing
// the human-readable detail.
const (
	KindValidation       = "validation_error"
	KindAuthentication   = "authentication_error"
	KindNotOnboarded     = "not_onboarded"
	KindAlreadyOnboarded = "already_onboarded"
	KindUpstream         = "upstream_error"
	KindInternal         = "internal_error"
	KindNotFound         = "not_found"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data to w with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes an error envelope. kind is one of the Kind* constants; detail
// is the human-readable explanation. No stack traces, ever.
func Error(w http.ResponseWriter, status int, kind, detail string) {
	JSON(w, status, ErrorBody{Error: kind, Detail: detail})
}
