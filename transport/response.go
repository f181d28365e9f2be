package transport

import (
	"fmt"
	"net/http"
)

// Response is the structured result of a dispatched request. Any HTTP status
// is a Response; only failures to get one are errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) Unauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized
}

// NetworkError is a transport level failure: the request never produced an
// HTTP response (DNS, connection refused, timeout, open circuit...).
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
