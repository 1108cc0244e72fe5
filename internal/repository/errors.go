package repository

import "errors"

var ErrNotFound = errors.New("not found")

// ErrMalformedTask marks a write the server accepted whose response body
// could not be read as a task.
var ErrMalformedTask = errors.New("malformed task in response")
