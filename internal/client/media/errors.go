package media

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindTransport means no usable response was received.
	KindTransport Kind = "transport"
	// KindBusiness means the service rejected the request.
	KindBusiness Kind = "business"
)

// Error is a failed remote call.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("media api %s error: HTTP %d: %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("media api %s error: %s", e.Kind, e.Message)
}

// MissingConfigError means a required setting is absent,
// either on our side or on the remote service.
type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing config: %s", e.Key)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

// IsBusiness reports whether err is rejection by the service
// and returns its message.
func IsBusiness(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindBusiness {
		return e.Message, true
	}
	return "", false
}

// IsMissingConfig reports whether err is a missing config error
// and returns the missing key.
func IsMissingConfig(err error) (string, bool) {
	var e *MissingConfigError
	if errors.As(err, &e) {
		return e.Key, true
	}
	return "", false
}
