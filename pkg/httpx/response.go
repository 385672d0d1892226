package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies read by ReadJSON.
const MaxBodyBytes = 1 << 20

// ErrBadJSON wraps any failure to decode a request body.
var ErrBadJSON = errors.New("httpx: invalid json body")

// WriteJSON writes v as JSON with the given status code. Responses are
// marked uncacheable since most of them carry credentials or identity.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"error","error_description"} body used by every
// error response.
func WriteError(w http.ResponseWriter, code int, errCode, desc string) {
	WriteJSON(w, code, map[string]string{
		"error":             errCode,
		"error_description": desc,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ReadJSON decodes a single JSON object from the request body into v.
// Unknown fields and trailing data are rejected.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrBadJSON)
	}
	return nil
}
