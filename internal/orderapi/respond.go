package orderapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"tailoring-bot/pkg/api"
)

const maxJSONBody = 64 * 1024

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}

// internalError logs err and answers with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	s.logger.Error(msg, append(fields,
		zap.String("path", r.URL.Path),
		zap.Error(err))...)
	writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
}

// decodeJSON reads a bounded body and rejects unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return err
	}
	if len(body) > maxJSONBody {
		return errBodyTooLarge
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
}
