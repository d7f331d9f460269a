package tools

import "errors"

// Registration errors. Register wraps these with the offending tool name.
var (
	ErrToolNameEmpty         = errors.New("tool name cannot be empty")
	ErrToolExecuteNil        = errors.New("tool execute function cannot be nil")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// Invocation errors. Lookup and argument validation wrap these so that
// callers can match with errors.Is.
var (
	ErrToolNotFound       = errors.New("tool not found")
	ErrMissingRequiredArg = errors.New("missing required argument")
	ErrInvalidArgType     = errors.New("invalid argument type")
)
