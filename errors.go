package worker

import "errors"

// Standard errors. Every operation in the public API returns either nil or
// one of these; they are stable within a release and matchable with
// [errors.Is].
var (
	// ErrDoubleFree is returned by the destructive operations when the worker
	// is already terminal or concurrently terminating. It indicates a program
	// bug at the call site.
	ErrDoubleFree = errors.New("worker: double free detected")

	// ErrInvalidHandle is returned by submission against a worker past its
	// serving lifetime. The caller must stop using the handle.
	ErrInvalidHandle = errors.New("worker: handle is no longer valid")

	// ErrAlreadyServing is returned when a goroutine that already hosts a
	// worker attempts to install another one.
	ErrAlreadyServing = errors.New("worker: goroutine is already serving a worker")

	// ErrInvalidTime is returned by DestroyTimed for an ill-formed deadline.
	ErrInvalidTime = errors.New("worker: invalid deadline")

	// ErrExpired is returned by DestroyTimed when the deadline passes before
	// teardown completes. The teardown continues asynchronously.
	ErrExpired = errors.New("worker: deadline expired before teardown completed")

	// ErrNotAlone is returned by the synchronous destroy variants when
	// another thread of control is already tearing the worker down. The
	// effect is equivalent to an asynchronous destroy.
	ErrNotAlone = errors.New("worker: another destroyer is already at work")

	// ErrSignal is returned when a wake channel write or read fails. The
	// worker may be a zombie; retry via Ping or accept the worker as leaked.
	ErrSignal = errors.New("worker: wake channel signal failed")

	// ErrUnknown is returned on an unexpected result from a synchronization
	// primitive. Treat as fatal.
	ErrUnknown = errors.New("worker: unexpected synchronization result")

	// ErrInternalBug is returned when an internal invariant is violated;
	// unreachable in a correct build.
	ErrInternalBug = errors.New("worker: internal invariant violated")
)

// Code identifies an error class numerically. The value set is a superset of
// what this implementation can produce: CodeNoMemory and CodeThreadCreate
// have no organic source here (allocation and goroutine creation do not fail
// recoverably in Go) and are reserved so the enumeration stays stable.
type Code uint32

const (
	CodeOK Code = iota
	CodeDoubleFree
	CodeInvalidHandle
	CodeAlreadyServing
	CodeInvalidTime
	CodeExpired
	CodeNotAlone
	CodeNoMemory
	CodeThreadCreate
	CodeSignal
	CodeUnknown
	CodeInternalBug
)

// CodeOf maps an error returned by this package to its Code. Unrecognized
// non-nil errors map to CodeUnknown; nil maps to CodeOK.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrDoubleFree):
		return CodeDoubleFree
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, ErrAlreadyServing):
		return CodeAlreadyServing
	case errors.Is(err, ErrInvalidTime):
		return CodeInvalidTime
	case errors.Is(err, ErrExpired):
		return CodeExpired
	case errors.Is(err, ErrNotAlone):
		return CodeNotAlone
	case errors.Is(err, ErrSignal):
		return CodeSignal
	case errors.Is(err, ErrInternalBug):
		return CodeInternalBug
	default:
		return CodeUnknown
	}
}
