package domain

import "errors"

// Error kinds. Concrete errors match these through errors.Is.
var (
	// ErrInvalidInput is returned for a missing or unsupported URL. The engine is never contacted.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEngineFailure is returned when the extraction engine call fails for any reason.
	ErrEngineFailure = errors.New("engine failure")
	// ErrOutputMissing is returned when the engine reported success but no output file exists.
	ErrOutputMissing = errors.New("downloaded file not found")
)

// InputError describes why a client-supplied URL was rejected.
type InputError struct {
	Code   string
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// Is reports whether target is ErrInvalidInput.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// EngineError carries the engine's failure message verbatim.
type EngineError struct {
	Op      string // "inspect" or "download"
	Message string
}

func (e *EngineError) Error() string { return e.Message }

// Is reports whether target is ErrEngineFailure.
func (e *EngineError) Is(target error) bool { return target == ErrEngineFailure }
