package normalize

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a caller-visible normalization failure. All of these
// are recoverable by resubmitting corrected input; none leave persistent
// state behind.
type ErrorCode string

const (
	CodeInvalidGeoJSON           ErrorCode = "invalid_geojson"
	CodeUnparsableInput          ErrorCode = "unparsable_input"
	CodeUnparsableCoordinates    ErrorCode = "unparsable_coordinates"
	CodeMissingCoordinateColumns ErrorCode = "missing_coordinate_columns"
	CodeNoValidCoordinates       ErrorCode = "no_valid_coordinates"
	CodeNoCoordinatesFound       ErrorCode = "no_coordinates_found"
	CodePayloadTooLarge          ErrorCode = "payload_too_large"
	CodeReprojectionFailed       ErrorCode = "reprojection_failed"
)

// Error is the typed failure returned by the normalization pipeline.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error code to its response status.
func (e *Error) HTTPStatus() int {
	if e.Code == CodePayloadTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts a typed normalization error, if err carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
