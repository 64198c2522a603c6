package player

import "errors"

// Error taxonomy. None of these is fatal to the process; each maps to a
// user-facing message and a well-defined recovery.
var (
	// ErrInvalidCommand marks malformed or unknown input. The command is
	// dropped before it reaches the state machine.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrOutOfRange marks an index argument outside the playlist bounds.
	// The command is a no-op and the version is not bumped.
	ErrOutOfRange = errors.New("index out of range")

	// ErrEmptyPlaylist marks a transport command issued against an empty
	// playlist. No-op, no version bump.
	ErrEmptyPlaylist = errors.New("playlist is empty")

	// ErrDeviceFailure marks a failed AudioSink call. The state is rolled
	// back to a safe value (paused) and the failure is surfaced to the
	// issuing client.
	ErrDeviceFailure = errors.New("audio device failure")

	// ErrStalled is returned by Probe when the state machine does not
	// release its writer lock within the probe budget.
	ErrStalled = errors.New("state machine stalled")
)
