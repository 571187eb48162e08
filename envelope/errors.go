package envelope

import (
	"net/http"

	"github.com/pkg/errors"
)

// ReturnCode attaches an HTTP status to err.  A nil err stays nil.
func ReturnCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &codedError{cause: err, code: code}
}

type codedError struct {
	cause error
	code  int
}

func (err *codedError) Error() string { return err.cause.Error() }
func (err *codedError) Cause() error  { return err.cause }
func (err *codedError) Unwrap() error { return err.cause }

func NotFound(err error) error            { return ReturnCode(err, http.StatusNotFound) }
func BadRequest(err error) error          { return ReturnCode(err, http.StatusBadRequest) }
func Unauthorized(err error) error        { return ReturnCode(err, http.StatusUnauthorized) }
func Forbidden(err error) error           { return ReturnCode(err, http.StatusForbidden) }
func UnprocessableEntity(err error) error { return ReturnCode(err, http.StatusUnprocessableEntity) }

// GetReturnCode finds the outermost status attached by ReturnCode.
// Errors without one map to 500.
func GetReturnCode(err error) int {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return http.StatusInternalServerError
}
