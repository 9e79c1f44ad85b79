package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/service"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/session"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/store"
	"github.com/LeticiaConforte/lean-inception-application-tcc-sub000/internal/template"
)

// statusFor maps domain errors to HTTP statuses. Anything unrecognised came
// from the document store and is reported as a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, service.ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoPrincipal):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrPermissionDenied),
		errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, session.ErrDirty),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoPendingDecision),
		errors.Is(err, session.ErrDecisionPending),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, service.ErrStepNotEditable),
		errors.Is(err, service.ErrStepNotLockable),
		errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, template.ErrInvalidContent),
		errors.Is(err, service.ErrInvalidName):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, session.ErrUnknownDecision),
		errors.Is(err, session.ErrNoSelection):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// messageFor hides store internals behind a fixed message.
func messageFor(status int, err error, fallback string) string {
	if status == http.StatusBadGateway && !errors.Is(err, service.ErrAggregateStale) {
		return fallback
	}
	return err.Error()
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}
