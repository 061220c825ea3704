// Package encoder converts a PCM frame stream into a chosen container (WAV
// PCM or a compressed MP3 stream) and emits time-sliced chunks to the
// Recording Engine (spec §4.2).
package encoder

import (
	"context"
	"errors"
	"time"
)

// Kind names an EncoderError failure mode.
type Kind string

const (
	KindDeviceDropped   Kind = "device_dropped"
	KindConstraintFailed Kind = "constraint_failed"
	KindInternal        Kind = "internal"
)

// Error wraps an encoder failure with its kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ErrClosed is returned by Write after Stop has completed.
var ErrClosed = errors.New("encoder closed")

// DefaultTimeslice is the chunk-delivery cadence (spec §4.2: "default 1 s").
const DefaultTimeslice = 1 * time.Second

// Encoder converts PCM frames into a container format, emitting chunks on
// a fixed cadence. Chunks are container-valid prefixes of the final blob
// for WAV; for compressed formats chunks are frame-aligned segments whose
// concatenation is the final blob.
type Encoder interface {
	// Write appends interleaved signed-linear PCM samples.
	Write(samples []float32) error

	// Chunks yields at most one chunk per Timeslice, and only when the blob
	// has grown since the previous chunk, until Stop is called. For WAV a
	// chunk is the whole container-valid blob so far; for compressed
	// formats it is the frame-aligned bytes encoded since the previous chunk.
	Chunks() <-chan []byte

	// CurrentBlob returns the full in-progress blob as of the last flush.
	CurrentBlob() []byte

	// BytesWritten returns the size of the current blob in bytes.
	BytesWritten() int64

	// Duration returns the encoded audio duration so far.
	Duration() time.Duration

	// Stop finalizes the encoder and returns the complete blob. It
	// respects ctx's deadline; callers enforce the 10s stop timeout
	// (spec §4.1) by passing a context with that deadline.
	Stop(ctx context.Context) ([]byte, error)
}
