package handler

import (
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/rs/zerolog"
)

type errorClass struct {
	status int
	name   string
	reason string
}

var errorClasses = map[service.Kind]errorClass{
	service.KindNotFound:   {http.StatusNotFound, "NOT_FOUND", "The required object was not found."},
	service.KindConflict:   {http.StatusConflict, "CONFLICT", "For the requested operation the conditions are not met."},
	service.KindForbidden:  {http.StatusForbidden, "FORBIDDEN", "The operation is not allowed for this user."},
	service.KindBadRequest: {http.StatusBadRequest, "BAD_REQUEST", "Incorrectly made request."},
	service.KindInternal:   {http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Unexpected server error."},
}

// writeError renders err as the JSON error envelope. Server errors log at
// error level and client errors at warn, using the request logger.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		class   errorClass
		details []string
		verr    *validationError
	)
	if errors.As(err, &verr) {
		class = errorClasses[service.KindBadRequest]
		details = verr.messages()
	} else {
		class = errorClasses[service.KindOf(err)]
	}

	message := err.Error()
	var se *service.Error
	if class.status >= http.StatusInternalServerError && !h.development {
		message = http.StatusText(class.status)
	} else if errors.As(err, &se) && se.Err == nil {
		message = se.Msg
	}

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if class.status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Int("status", class.status).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(class.reason)

	writeJSON(w, class.status, model.ErrorResponse{
		Status:    class.name,
		Reason:    class.reason,
		Message:   message,
		Errors:    details,
		Timestamp: h.now().Format(timestampLayout),
	})
}
