package server

import (
	"encoding/json"
	"errors"
	"net/http"

	errx "github.com/vitachat-poc-v1/server/internal/core/error"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

var errBadBody = errx.New(errors.New("malformed request body"), http.StatusBadRequest, "malformed request body")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

func okJSON(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

// writeError maps err onto its AppError status and safe message.
func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Code: status, Message: errx.MessageOf(err)})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errBadBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errx.New(err, http.StatusBadRequest, errBadBody.Message)
	}
	return nil
}
