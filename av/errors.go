package av

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the codec, container and engine packages.
// Callers classify failures with errors.Is(); every package wraps these
// with context via fmt.Errorf("...: %w", ...).

// Argument errors.
var (
	// ErrInvalidArgument indicates a malformed parameter: a short buffer,
	// an unsupported bit depth or subsampling, a non-positive dimension.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedConfiguration indicates a combination the component
	// cannot honor, such as an unknown WAVE length on a non-seekable sink.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
)

// Container errors.
var (
	// ErrContainerState indicates an operation that is invalid in the
	// current lifecycle state, such as a packet submitted after EOS or
	// PCM written after the WAVE header was finalized.
	ErrContainerState = errors.New("invalid container state")
)

// Engine errors.
var (
	// ErrNeedMoreData is returned by decoders that consumed a packet but
	// cannot produce output until further packets arrive. It is not a
	// failure.
	ErrNeedMoreData = errors.New("engine needs more data")

	// ErrEngineClosed indicates an engine was used after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// Engine status codes carried by EngineError.
const (
	// EngineUnsupported marks an operation the backend does not implement.
	EngineUnsupported = -1
	// EngineBadPacket marks input the backend rejected as malformed.
	EngineBadPacket = -2
	// EngineInternal marks any other backend failure.
	EngineInternal = -3
)

// EngineError reports a failure inside a CodecEngine backend. Code is the
// backend's status code and is never reinterpreted.
type EngineError struct {
	Engine string
	Op     string
	Code   int
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed (code %d): %v", e.Engine, e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s failed (code %d)", e.Engine, e.Op, e.Code)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError builds an EngineError for the named engine and operation.
func NewEngineError(engine, op string, code int, err error) *EngineError {
	return &EngineError{Engine: engine, Op: op, Code: code, Err: err}
}
