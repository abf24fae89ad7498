package internal

import (
	"errors"
)

var (
	ErrNoURL            = errors.New("shred: no url or host to request")
	ErrTooManyRedirects = errors.New("shred: stopped after too many redirects")
	ErrTimeout          = errors.New("shred: request timed out")
	ErrScheme           = errors.New("shred: unsupported url scheme")
)

// RequestError is what request_error listeners and [Request.Do] report for
// configuration and transport failures.
type RequestError struct {
	Method string
	URL    string
	Err    error
}

func (e *RequestError) Error() string {
	if e.URL == "" {
		return e.Err.Error()
	}
	return e.Method + " " + e.URL + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }
