package errors

import (
	"net/http"
)

// HTTPStatusCode returns the response status for err by its Kind: 400 for
// invalid input, 401 for failed authentication, 499 when the client went
// away, 504 on a deadline and 500 otherwise.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return transport[KindOf(err)].http
}

// WriteHTTPError writes err as a plain-text response with the mapped status code.
func WriteHTTPError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	http.Error(w, err.Error(), HTTPStatusCode(err))
}
