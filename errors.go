package aggregator

import "errors"

var (
	// ErrInvalidHandle is returned when a stream handle doesn't
	// refer to a registered stream.
	ErrInvalidHandle = errors.New("invalid stream handle")

	// ErrTypeMismatch is returned when a pushed value isn't
	// assignable to the stream's sample type.
	ErrTypeMismatch = errors.New("sample type mismatch")

	// ErrNilCallback is returned when a stream is registered
	// without a callback.
	ErrNilCallback = errors.New("nil callback")

	// ErrRunnerClosed is returned when a runner is used after Stop.
	ErrRunnerClosed = errors.New("runner closed")

	// ErrRunnerStarted is returned when Start is called twice.
	ErrRunnerStarted = errors.New("runner already started")
)
