package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// QueryInt reads an integer query parameter. A missing or empty parameter
// yields def; anything non-numeric or outside [lo, hi] is an error whose
// message is safe to return to the client.
func QueryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s parameter, must be %d-%d", name, lo, hi)
	}
	return n, nil
}

// QueryFloat reads a float query parameter. ok is false when the parameter is
// absent.
func QueryFloat(r *http.Request, name string) (v float64, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s parameter, must be a number", name)
	}
	return v, true, nil
}
