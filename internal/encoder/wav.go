package encoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"
)

const bitsPerSample = 16

// WAVEncoder incrementally builds a RIFF/WAVE container in memory,
// rewriting the header on every flush so CurrentBlob always returns a
// valid (possibly truncated) WAV file. Adapted from the teacher's
// file-based WAVWriter: here the container lives in a byte buffer instead
// of an open file, because persistence is the Blob Store's job, not the
// Encoder's.
type WAVEncoder struct {
	mu             sync.Mutex
	sampleRate     int
	channels       int
	samplesWritten int64
	data           bytes.Buffer // raw PCM16 payload, header prepended on flush

	timeslice time.Duration
	chunks    chan []byte
	lastFlush int // blob length at the last emitted chunk
	stopCh    chan struct{}
	stopped   bool
}

// NewWAVEncoder constructs a WAV encoder for the given sample rate and
// channel count, using the default 1s chunk cadence.
func NewWAVEncoder(sampleRate, channels int) *WAVEncoder {
	e := &WAVEncoder{
		sampleRate: sampleRate,
		channels:   channels,
		timeslice:  DefaultTimeslice,
		chunks:     make(chan []byte, 16),
		stopCh:     make(chan struct{}),
	}
	go e.flushLoop()
	return e
}

func (e *WAVEncoder) flushLoop() {
	ticker := time.NewTicker(e.timeslice)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.flush()
		case <-e.stopCh:
			return
		}
	}
}

// flush emits the whole current blob (a valid WAV prefix of the final
// blob) whenever it has grown since the previous chunk.
func (e *WAVEncoder) flush() {
	e.mu.Lock()
	blob := e.buildBlobLocked()
	if e.lastFlush < len(blob) {
		e.lastFlush = len(blob)
		e.mu.Unlock()
		select {
		case e.chunks <- blob:
		default:
		}
		return
	}
	e.mu.Unlock()
}

func (e *WAVEncoder) Write(samples []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrClosed
	}
	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		if err := binary.Write(&e.data, binary.LittleEndian, int16(s*32767)); err != nil {
			return &Error{Kind: KindInternal, Err: err}
		}
		e.samplesWritten++
	}
	return nil
}

func (e *WAVEncoder) Chunks() <-chan []byte { return e.chunks }

func (e *WAVEncoder) CurrentBlob() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildBlobLocked()
}

func (e *WAVEncoder) BytesWritten() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(44 + e.data.Len())
}

func (e *WAVEncoder) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	frames := e.samplesWritten / int64(e.channels)
	return time.Duration(frames) * time.Second / time.Duration(e.sampleRate)
}

func (e *WAVEncoder) Stop(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, nil
	}
	e.stopped = true
	blob := e.buildBlobLocked()
	e.mu.Unlock()
	close(e.stopCh)
	return blob, nil
}

// buildBlobLocked prepends a freshly-computed RIFF/WAVE header to the
// accumulated PCM payload. Caller must hold e.mu.
func (e *WAVEncoder) buildBlobLocked() []byte {
	dataBytes := e.data.Bytes()
	dataSize := uint32(len(dataBytes))
	byteRate := e.sampleRate * e.channels * bitsPerSample / 8
	blockAlign := e.channels * bitsPerSample / 8

	header := bytes.NewBuffer(make([]byte, 0, 44))
	header.WriteString("RIFF")
	binary.Write(header, binary.LittleEndian, uint32(36+dataSize))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	binary.Write(header, binary.LittleEndian, uint32(16))
	binary.Write(header, binary.LittleEndian, uint16(1))
	binary.Write(header, binary.LittleEndian, uint16(e.channels))
	binary.Write(header, binary.LittleEndian, uint32(e.sampleRate))
	binary.Write(header, binary.LittleEndian, uint32(byteRate))
	binary.Write(header, binary.LittleEndian, uint16(blockAlign))
	binary.Write(header, binary.LittleEndian, uint16(bitsPerSample))
	header.WriteString("data")
	binary.Write(header, binary.LittleEndian, dataSize)

	blob := make([]byte, 0, 44+len(dataBytes))
	blob = append(blob, header.Bytes()...)
	blob = append(blob, dataBytes...)
	return blob
}
