package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/lyrebird/internal/shared"
)

// StatusFor maps an error to the HTTP status reported to clients.
func StatusFor(err error) int {
	if errors.Is(err, shared.ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}
	switch shared.ErrorKind(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "rate_limited":
		return http.StatusTooManyRequests
	case "network":
		return http.StatusBadGateway
	case "invalid_input":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorBody{Error: err.Error(), Kind: shared.ErrorKind(err)})
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", shared.ErrInvalidArgument, key, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", shared.ErrInvalidArgument, key, raw)
	}
	return v, nil
}
