package httpapi

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Error codes exposed to clients.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeInternal       = "internal"
)

// ErrorModel is the error envelope returned by every endpoint.
type ErrorModel struct {
	status int

	Err struct {
		Code    string `doc:"Stable machine-readable error code" json:"code"`
		Message string `doc:"Human-readable explanation"         json:"message"`
	} `json:"error"`
}

func (e *ErrorModel) Error() string {
	return e.Err.Message
}

// GetStatus implements huma.StatusError.
func (e *ErrorModel) GetStatus() int {
	return e.status
}

// NewError builds the error envelope for a status code. Installed as
// huma.NewError so every huma.ErrorNNN helper produces this shape.
func NewError(status int, message string, _ ...error) huma.StatusError {
	// huma reports schema validation failures as 422; the API contract
	// only speaks 400 for request parse and validation errors.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	e := &ErrorModel{status: status}
	e.Err.Code = codeForStatus(status)
	e.Err.Message = message

	return e
}

func init() {
	huma.NewError = NewError
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
