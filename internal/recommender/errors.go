package recommender

import (
	"errors"
	"fmt"
)

// Error kinds reported by Kind.
const (
	KindNetwork   = "network"
	KindService   = "service"
	KindMalformed = "malformed"
	KindUnknown   = "unknown"
)

// NetworkError means no response was received from the service.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("recommendation service unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError means the service answered with a failure status.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("recommendation service rejected the request (%d): %s", e.StatusCode, e.Message)
}

// MalformedResponse means the service answered but the body is not a
// location list.
type MalformedResponse struct {
	Err error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("malformed response from recommendation service: %v", e.Err)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

// Kind classifies err as one of the Kind* constants.
func Kind(err error) string {
	var (
		netErr       *NetworkError
		serviceErr   *ServiceError
		malformedErr *MalformedResponse
	)
	switch {
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &serviceErr):
		return KindService
	case errors.As(err, &malformedErr):
		return KindMalformed
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status carried by a ServiceError, or 0.
func StatusCode(err error) int {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode
	}
	return 0
}
