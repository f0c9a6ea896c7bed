package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Write sends err as a {code, message} body with the status of its code.
// Errors without a code are reported as internal without their text.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Code: CodeOf(err), Message: ErrInternal.Message}
		if e.Code != CodeInternal {
			e.Message = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e)
}
