package internalhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lomoval/notecal/internal/app"
	"github.com/lomoval/notecal/internal/auth"
	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/push"
	"github.com/lomoval/notecal/internal/storage"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/lomoval/notecal/internal/validator"
	log "github.com/sirupsen/logrus"
)

const errInternalServerError = "internal server error"

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

var (
	unauthorizedErrors = []error{auth.ErrNoUser, auth.ErrInvalidCredentials, auth.ErrInvalidToken}
	badRequestErrors   = []error{
		errBadRequest,
		validator.ErrInvalid,
		storage.ErrIncorrectNoteKind,
		storage.ErrIncorrectNoteTime,
		theme.ErrUnknownMode,
		blob.ErrUnsupportedType,
		push.ErrNoToken,
		app.ErrMediaKind,
		app.ErrUnknownTimezone,
	}
	notFoundErrors = []error{
		storage.ErrNotFoundNote,
		storage.ErrNotFoundUser,
		storage.ErrNotFoundSettings,
		blob.ErrNotFound,
	}
)

func statusOf(err error) int {
	switch {
	case isAny(err, unauthorizedErrors):
		return http.StatusUnauthorized
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, blob.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, app.ErrMediaDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError answers with {"error": ...}. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
		msg = errInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}
