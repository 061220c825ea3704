package encoder

import (
	"context"
	"sync"
	"time"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// MP3Encoder buffers int16 PCM and flushes frame-aligned MP3 blocks via
// shine-mp3 (pure Go, no cgo/ffmpeg). Adapted from the teacher's
// ShineMP3Writer: writes accumulate into an in-memory blob instead of an
// open file, for the same reason as WAVEncoder.
type MP3Encoder struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	enc        *mp3.Encoder

	pending []int16 // samples awaiting a full shine block
	blob    []byte  // encoded MP3 bytes so far

	samplesWritten int64

	timeslice time.Duration
	chunks    chan []byte
	lastFlush int
	stopCh    chan struct{}
	stopped   bool
}

// blockSize is shine's required block size: 1152 samples per channel.
func blockSize(channels int) int { return 1152 * channels }

// NewMP3Encoder constructs a compressed-format encoder targeting the given
// sample rate, channel count and bitrate (bitrate is informational; shine
// derives its own internal rate from sampleRate/channels, matching the
// teacher's own ShineMP3Writer usage).
func NewMP3Encoder(sampleRate, channels, qualityKbps int) *MP3Encoder {
	e := &MP3Encoder{
		sampleRate: sampleRate,
		channels:   channels,
		enc:        mp3.NewEncoder(sampleRate, channels),
		pending:    make([]int16, 0, blockSize(channels)*4),
		timeslice:  DefaultTimeslice,
		chunks:     make(chan []byte, 16),
		stopCh:     make(chan struct{}),
	}
	go e.flushLoop()
	return e
}

func (e *MP3Encoder) flushLoop() {
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

type byteSink struct{ buf *[]byte }

func (s byteSink) Write(p []byte) (int, error) {
	*s.buf = append(*s.buf, p...)
	return len(p), nil
}

func (e *MP3Encoder) flush() {
	e.mu.Lock()
	if e.lastFlush < len(e.blob) {
		chunk := make([]byte, len(e.blob)-e.lastFlush)
		copy(chunk, e.blob[e.lastFlush:])
		e.lastFlush = len(e.blob)
		e.mu.Unlock()
		select {
		case e.chunks <- chunk:
		default:
		}
		return
	}
	e.mu.Unlock()
}

func (e *MP3Encoder) Write(samples []float32) error {
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
		e.pending = append(e.pending, int16(s*32767))
	}
	e.samplesWritten += int64(len(samples))

	bs := blockSize(e.channels)
	if len(e.pending) >= bs {
		n := (len(e.pending) / bs) * bs
		e.enc.Write(byteSink{&e.blob}, e.pending[:n])
		remaining := len(e.pending) - n
		copy(e.pending, e.pending[n:])
		e.pending = e.pending[:remaining]
	}
	return nil
}

func (e *MP3Encoder) Chunks() <-chan []byte { return e.chunks }

func (e *MP3Encoder) CurrentBlob() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]byte, len(e.blob))
	copy(out, e.blob)
	return out
}

func (e *MP3Encoder) BytesWritten() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.blob))
}

func (e *MP3Encoder) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	frames := e.samplesWritten / int64(e.channels)
	return time.Duration(frames) * time.Second / time.Duration(e.sampleRate)
}

func (e *MP3Encoder) Stop(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, nil
	}
	e.stopped = true
	if len(e.pending) > 0 {
		bs := blockSize(e.channels)
		for len(e.pending)%bs != 0 {
			e.pending = append(e.pending, 0)
		}
		e.enc.Write(byteSink{&e.blob}, e.pending)
		e.pending = nil
	}
	out := make([]byte, len(e.blob))
	copy(out, e.blob)
	e.mu.Unlock()
	close(e.stopCh)
	return out, nil
}
