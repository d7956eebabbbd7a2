package device

import "errors"

var (
	// ErrNotFound indicates a device was not found
	ErrNotFound = errors.New("device not found")

	// ErrUnreachable indicates the device did not answer or answered with an error
	ErrUnreachable = errors.New("device unreachable")

	// ErrNotConnected indicates the executor has no device network (dry-run mode)
	ErrNotConnected = errors.New("executor not connected")

	// ErrValidation indicates a device payload failed schema validation
	ErrValidation = errors.New("validation error")

	// ErrDuplicate indicates two registry entries share an id, name or abbreviation
	ErrDuplicate = errors.New("duplicate device")
)
