package engine

import (
	"context"
	"sync"
	"time"

	"taverntapesd/internal/ports"
)

// fakeHandle is a controllable ports.DeviceHandle for tests.
type fakeHandle struct {
	frames chan ports.Frame

	mu     sync.Mutex
	err    error
	closed bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{frames: make(chan ports.Frame, 64)}
}

func (h *fakeHandle) Frames() <-chan ports.Frame { return h.frames }

func (h *fakeHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.frames)
	}
	return nil
}

// simulateLoss marks the handle as abnormally terminated and closes its
// frame channel, mimicking a device disconnecting mid-stream.
func (h *fakeHandle) simulateLoss(err error) {
	h.mu.Lock()
	h.err = err
	closed := h.closed
	h.closed = true
	h.mu.Unlock()
	if !closed {
		close(h.frames)
	}
}

// fakeDevice is a controllable ports.DevicePort for tests.
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	handles []*fakeHandle
}

func (d *fakeDevice) EnumerateInputs(ctx context.Context) ([]ports.DeviceInfo, error) {
	return []ports.DeviceInfo{{ID: "default", Label: "Fake Mic"}}, nil
}

func (d *fakeDevice) Open(ctx context.Context, cfg ports.DeviceConfig) (ports.DeviceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	h := newFakeHandle()
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeDevice) lastHandle() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.handles) == 0 {
		return nil
	}
	return d.handles[len(d.handles)-1]
}

// fakeEncoder is a controllable encoder.Encoder for tests: Write just
// tallies bytes, and a test drives chunk emission explicitly by sending on
// the channel returned by Chunks, since the Engine's handleChunk ignores
// the chunk payload and reads CurrentBlob/BytesWritten directly.
type fakeEncoder struct {
	mu      sync.Mutex
	blob    []byte
	written int64
	dur     time.Duration
	chunks  chan []byte
	stopped bool

	// stopBytes, if non-nil, is what Stop returns instead of the
	// accumulated blob -- simulating a container (e.g. a bare WAV header)
	// that Stop finalizes even though no Write/timeslice flush happened.
	stopBytes []byte
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{chunks: make(chan []byte, 16)}
}

func (e *fakeEncoder) Write(samples []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errEncoderClosedForTest
	}
	e.blob = append(e.blob, make([]byte, len(samples)*2)...)
	e.written += int64(len(samples) * 2)
	e.dur += time.Duration(len(samples)) * time.Second / 44100
	return nil
}

func (e *fakeEncoder) Chunks() <-chan []byte { return e.chunks }

func (e *fakeEncoder) CurrentBlob() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.blob...)
}

func (e *fakeEncoder) BytesWritten() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written
}

func (e *fakeEncoder) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dur
}

func (e *fakeEncoder) Stop(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, nil
	}
	e.stopped = true
	close(e.chunks)
	if e.stopBytes != nil {
		return e.stopBytes, nil
	}
	return append([]byte(nil), e.blob...), nil
}

func (e *fakeEncoder) setStopBytes(b []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBytes = b
}

func (e *fakeEncoder) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// emitChunk signals the Engine that a timeslice flush occurred.
func (e *fakeEncoder) emitChunk() {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return
	}
	select {
	case e.chunks <- []byte{0}:
	default:
	}
}

var errEncoderClosedForTest = &fakeEncoderError{"encoder closed"}

type fakeEncoderError struct{ msg string }

func (e *fakeEncoderError) Error() string { return e.msg }
