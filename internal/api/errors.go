package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// Error codes returned in the "error" field of failed commands.
const (
	CodeNotFound       = "not_found"
	CodeInvalidInput   = "invalid_input"
	CodeAlreadyVoted   = vote.ReasonAlreadyVoted
	CodeInactive       = "session_inactive"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
	CodeRouteNotFound  = "route_not_found"
	CodeMethodNotFound = "method_not_allowed"
)

// ErrorResponse is the JSON body of every failed command.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps engine errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var validation *errors.ValidationError
	var collaborator *errors.CollaboratorError
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, errors.ErrAlreadyVoted):
		return http.StatusConflict, CodeAlreadyVoted
	case errors.Is(err, errors.ErrSessionInactive):
		return http.StatusConflict, CodeInactive
	case errors.As(err, &validation), errors.Is(err, errors.ErrInvalidInput), errors.Is(err, errors.ErrInvalidChoice):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.As(err, &collaborator), errors.Is(err, errors.ErrTimeout):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// handleError renders handler errors and echo routing errors as ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var body ErrorResponse

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		body = ErrorResponse{Error: routeCode(httpErr.Code), Message: http.StatusText(httpErr.Code)}
		if msg, ok := httpErr.Message.(string); ok {
			body.Message = msg
		}
	} else {
		status, body.Error = statusFor(err)
		body.Message = err.Error()
		if !errors.IsUserFacing(err) {
			s.Logger.Error("command failed", "path", c.Path(), "status", status, "error", err.Error())
			body.Message = http.StatusText(status)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.Logger.Warn("write error response failed", "error", err.Error())
	}
}

func routeCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeRouteNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotFound
	case http.StatusBadRequest:
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}
