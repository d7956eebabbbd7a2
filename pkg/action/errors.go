package action

import "errors"

var (
	// ErrParse indicates malformed action, device or level text
	ErrParse = errors.New("parse error")

	// ErrOutOfRange indicates a level outside [0, MaxLevel)
	ErrOutOfRange = errors.New("level out of range")
)
