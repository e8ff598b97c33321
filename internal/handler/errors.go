package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/service"
)

// HTTPErrorInfo is the status and client-facing message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

type errorMapping struct {
	err     error
	status  int
	message string
}

// ErrorMapper maps domain errors to HTTP responses.  Errors that match no
// mapping get the default status and a generic message; their text is
// only logged.
type ErrorMapper struct {
	mappings       []errorMapping
	defaultStatus  int
	defaultMessage string
}

// NewErrorMapper returns a mapper that answers 500 "server error" by default.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{defaultStatus: http.StatusInternalServerError, defaultMessage: "server error"}
}

// WithMapping registers err (matched with errors.Is).  When message is
// empty the error text itself is returned to the client.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, errorMapping{err: err, status: status, message: message})
	return m
}

// Map converts err to a status and message.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	for _, mp := range m.mappings {
		if errors.Is(err, mp.err) {
			msg := mp.message
			if msg == "" {
				msg = mp.err.Error()
			}
			return HTTPErrorInfo{Status: mp.status, Message: msg}
		}
	}
	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

// reservationErrors covers every error ReservationService returns.
var reservationErrors = NewErrorMapper().
	WithMapping(service.ErrNotFound, http.StatusNotFound, "").
	WithMapping(service.ErrForbidden, http.StatusForbidden, "forbidden").
	WithMapping(service.ErrInvalidDate, http.StatusBadRequest, "").
	WithMapping(service.ErrInvalidGuests, http.StatusBadRequest, "").
	WithMapping(service.ErrInvalidStatus, http.StatusBadRequest, "")

// HTTPErrorHandler renders every error that reaches echo as
// {"error": "..."}.  Unmatched routes become 404 "not found".
func HTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := "server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch {
			case status == http.StatusNotFound:
				msg = "not found"
			case status < 500:
				if s, ok := he.Message.(string); ok {
					msg = s
				} else {
					msg = http.StatusText(status)
				}
			}
		}
		if status >= 500 {
			log.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": msg})
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}
