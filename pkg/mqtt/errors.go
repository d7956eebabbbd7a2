package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing while the broker is unreachable
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed is returned when the broker rejects or never acknowledges a publish
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrTimeout is returned when an acknowledgement does not arrive in time
	ErrTimeout = errors.New("mqtt: operation timed out")
)
