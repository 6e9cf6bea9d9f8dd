package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FieldError is one entry of a 400 response's "errors" list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError is a failed call: either the server answered non-2xx or the
// request never completed (StatusCode 0).
type RequestError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// newRequestError takes the message from the body's "message", then its
// "detail", then falls back to a generic text for the status.
func newRequestError(status int, body []byte) *RequestError {
	re := &RequestError{StatusCode: status}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		re.Fields = env.Errors
		switch {
		case env.Message != "":
			re.Message = env.Message
		case env.Detail != "":
			re.Message = env.Detail
		}
	}
	if re.Message == "" {
		re.Message = fmt.Sprintf("request failed: %s", http.StatusText(status))
		if status == 0 || http.StatusText(status) == "" {
			re.Message = "request failed"
		}
	}
	return re
}

func statusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}
