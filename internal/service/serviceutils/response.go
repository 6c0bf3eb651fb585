package serviceutils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed operation.
type ErrorBody struct {
	Kind   string            `json:"kind"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidState, domain.KindDuplicatePeriod, domain.KindConflict, domain.KindCycleDetected:
		return http.StatusConflict
	case domain.KindInvalidRange, domain.KindSelfReference, domain.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ResponseSuccess writes a success envelope.
func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// ResponseError writes an error envelope. Details of 5xx errors are logged,
// never returned.
func ResponseError(c echo.Context, status int, message string, err error) error {
	body := &ErrorBody{Kind: string(domain.KindOf(err))}
	if status >= http.StatusInternalServerError {
		body.Kind = "Internal"
		logger.ErrorLog(c.Request().Context(), "%s: %v", message, err)
	} else if err != nil {
		body.Detail = err.Error()
		var derr *domain.Error
		if errors.As(err, &derr) {
			body.Detail = derr.Message
			body.Fields = derr.Fields
		}
		if body.Kind == "" {
			body.Kind = string(domain.KindValidation)
		}
	}
	return c.JSON(status, Response{Success: false, Message: message, Error: body})
}

// ResponseServiceError writes err with the status of its kind.
func ResponseServiceError(c echo.Context, message string, err error) error {
	return ResponseError(c, StatusOf(err), message, err)
}
