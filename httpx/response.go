// Package httpx holds the JSON response helpers and middleware shared by handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body := []byte("null")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			// avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Decode reads a JSON body into v. On failure it writes a 400 invalid_json
// response and returns false.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		JSONError(w, http.StatusBadRequest, "invalid_json", map[string]string{"reason": err.Error()})
		return false
	}
	return true
}
