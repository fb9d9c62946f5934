package httpapi

import (
	"errors"
	"net/http"

	"github.com/secure-doc/imagey-cloud/internal/common"
)

// statusFor maps service errors to response codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrMalformed),
		errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrMailUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the bare status text for err. Server-side failures are logged
// with the cause; client errors are not.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed", "route", routeTemplate(r), "status", status, "error", err)
	} else {
		a.logger.Debug(r.Context(), "request rejected", "route", routeTemplate(r), "status", status, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}
