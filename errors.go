package vad

import "errors"

// Error taxonomy (spec §7). Callers may use errors.Is against these sentinels;
// ModelLoadError and InferenceError also carry the underlying cause via %w.
var (
	// ErrBadFrameSize is returned by ProcessChunk when the caller's slice length
	// does not equal the configured window size. Recoverable: no state is mutated.
	ErrBadFrameSize = errors.New("vad: frame size does not match configured window")

	// ErrNotInitialized is returned by any operation performed before Initialize
	// succeeds.
	ErrNotInitialized = errors.New("vad: detector is not initialized")

	// ErrClosed is returned by any operation performed after Close.
	ErrClosed = errors.New("vad: detector is closed")
)

// ModelLoadError wraps a failure to load or validate the ONNX model file at
// Initialize time. The detector remains unusable after this error.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return "vad: model load failed for " + e.Path + ": " + e.Err.Error()
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError wraps a failure of the acoustic model's forward pass. In
// batch mode the caller receives whatever segments were finalized before the
// failure; in streaming mode the detector's state is left unchanged since the
// last successful frame.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "vad: inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IoError wraps a failure writing a segment's WAV file in the segment sink.
// The segment is skipped; the stream continues; segment_counter is not
// advanced for the failed write.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return "vad: write failed for " + e.Path + ": " + e.Err.Error()
}

func (e *IoError) Unwrap() error { return e.Err }
