package logos

import "net/http"

// Status codes used by the controller pipeline.
const (
	StatusSuccess             = http.StatusOK
	StatusBadRequest          = http.StatusBadRequest
	StatusUnauthorized        = http.StatusUnauthorized
	StatusNotFound            = http.StatusNotFound
	StatusUnprocessableEntity = http.StatusUnprocessableEntity
	StatusInternalServerError = http.StatusInternalServerError
)

// IsSuccess reports whether status is in [200,300).
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
