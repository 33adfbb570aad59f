package detection

import (
	"ProjectSpatial/pkg/response"
	"errors"
	"net/http"
)

var (
	ErrPreparationFailed = response.NewError(http.StatusUnprocessableEntity, "failed to prepare image payload")
	ErrInvocationFailed  = response.NewError(http.StatusBadGateway, "model invocation failed")
	ErrParseFailed       = response.NewError(http.StatusBadGateway, "failed to parse model response")
	ErrRequestInFlight   = response.NewError(http.StatusConflict, "a detection request is already in flight")
	ErrSessionNotFound   = response.NewError(http.StatusNotFound, "session not found")
	ErrResultNotFound    = response.NewError(http.StatusNotFound, "no detection result yet")
	ErrUnknownTask       = response.NewError(http.StatusBadRequest, "unknown detection task")
	ErrInvalidImage      = response.NewError(http.StatusBadRequest, "invalid image")
	ErrRelayFailed       = response.NewError(http.StatusBadGateway, "failed to attach camera relay")

	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)

// ErrorCode is the machine-readable code sent alongside the error message.
func ErrorCode(err error) (string, bool) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, true
		}
	}
	return "", false
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrPreparationFailed, "PREPARATION_ERROR"},
	{ErrInvocationFailed, "INVOCATION_ERROR"},
	{ErrParseFailed, "PARSE_ERROR"},
	{ErrRequestInFlight, "REQUEST_IN_FLIGHT"},
	{ErrSessionNotFound, "SESSION_NOT_FOUND"},
	{ErrResultNotFound, "RESULT_NOT_FOUND"},
	{ErrUnknownTask, "UNKNOWN_TASK"},
	{ErrInvalidImage, "INVALID_IMAGE"},
	{ErrRelayFailed, "RELAY_ERROR"},
	{ErrInternalServerError, "INTERNAL_ERROR"},
}
