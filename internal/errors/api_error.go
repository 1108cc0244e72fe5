package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// APIError is a failure reported by the remote API or by the transport
// underneath it. Status 0 means no response was received.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Transport wraps a failure that produced no HTTP response.
func Transport(err error) *APIError {
	message := "network request failed"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	apiErr := New(0, "network_error", message)
	apiErr.Err = err
	return apiErr
}

// FromResponse builds the error for a non-2xx response. data is the parsed body.
func FromResponse(status int, data interface{}) *APIError {
	message := messageFromData(data)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	apiErr := New(status, codeFromData(data, status), message)
	apiErr.Data = data
	return apiErr
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Data = details
	return err
}

// ValidationError is a local input failure that never reached the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// As returns the APIError in err's chain, if any.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCanceled reports whether err is a context cancellation or deadline.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// IsOffline reports a transport failure: an APIError with status 0.
func IsOffline(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == 0
}

// IsFallbackEligible reports whether a store with a local mirror should
// degrade to it: anything that is not an APIError, or an APIError with
// status 0 or a 5xx status. Cancellation is never eligible.
func IsFallbackEligible(err error) bool {
	if err == nil {
		return false
	}
	if IsCanceled(err) {
		return false
	}
	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return false
	}
	apiErr, ok := As(err)
	if !ok {
		return true
	}
	return apiErr.Status == 0 || apiErr.Status >= http.StatusInternalServerError
}

func IsUnauthorized(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

func IsStatus(err error, status int) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == status
}

func messageFromData(data interface{}) string {
	switch value := data.(type) {
	case map[string]interface{}:
		if message, ok := value["message"].(string); ok && message != "" {
			return message
		}
		switch nested := value["error"].(type) {
		case string:
			if nested != "" {
				return nested
			}
		case map[string]interface{}:
			if message, ok := nested["message"].(string); ok && message != "" {
				return message
			}
		}
		if detail, ok := value["detail"].(string); ok && detail != "" {
			return detail
		}
	case string:
		return value
	}
	return ""
}

func codeFromData(data interface{}, status int) string {
	if value, ok := data.(map[string]interface{}); ok {
		if code, ok := value["code"].(string); ok && code != "" {
			return code
		}
		if nested, ok := value["error"].(map[string]interface{}); ok {
			if code, ok := nested["code"].(string); ok && code != "" {
				return code
			}
		}
	}
	switch {
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "request_failed"
	}
}
