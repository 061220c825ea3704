// Package audio is the malgo-backed ports.DevicePort adapter: a single
// input capture device delivering interleaved float32 PCM frames. Adapted
// from the teacher's audio/capture.go Capture type, narrowed from
// mic+system dual capture (with BlackHole/ScreenCaptureKit/CoreAudioTap
// system-audio paths) down to one input stream, since the Engine's own
// domain model (spec §2) has exactly one input device per recording.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"taverntapesd/internal/ports"
)

// errDeviceStopped marks a handle whose underlying device stopped itself
// (device unplugged, driver reset) rather than being closed by the caller.
var errDeviceStopped = errors.New("capture device stopped unexpectedly")

// Device is a ports.DevicePort backed by a single malgo context.
type Device struct {
	ctx *malgo.AllocatedContext
}

// New initializes the underlying audio context. Close releases it.
func New() (*Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Device{ctx: ctx}, nil
}

// Close releases the malgo context.
func (d *Device) Close() {
	d.ctx.Uninit()
	d.ctx.Free()
}

// EnumerateInputs lists capture-capable devices.
func (d *Device) EnumerateInputs(_ context.Context) ([]ports.DeviceInfo, error) {
	devices, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}
	out := make([]ports.DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		out = append(out, ports.DeviceInfo{ID: deviceIDToString(dev.ID), Label: dev.Name()})
	}
	return out, nil
}

// Open starts capturing from cfg.DeviceID ("default" for the host
// default), delivering float32 interleaved frames at cfg.SampleRateHz /
// cfg.Channels.
func (d *Device) Open(_ context.Context, cfg ports.DeviceConfig) (ports.DeviceHandle, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRateHz)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.DeviceID != "" && cfg.DeviceID != "default" {
		id, err := stringToDeviceID(cfg.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrDeviceNotFound, err)
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	h := &handle{
		frames: make(chan ports.Frame, 256),
	}

	channels := int(deviceConfig.Capture.Channels)
	onRecvFrames := func(_ []byte, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount) * channels
		if len(pInputSamples) != sampleCount*4 {
			return
		}
		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) | uint32(pInputSamples[i*4+1])<<8 | uint32(pInputSamples[i*4+2])<<16 | uint32(pInputSamples[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}
		select {
		case h.frames <- ports.Frame{Samples: samples}:
		default:
			// Drop a frame rather than block the audio callback thread.
		}
	}

	onStop := func() {
		h.mu.Lock()
		h.err = errDeviceStopped
		h.mu.Unlock()
		h.closeFrames()
	}

	dev, err := malgo.InitDevice(d.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames, Stop: onStop})
	if err != nil {
		return nil, classifyOpenError(err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, classifyOpenError(err)
	}

	h.dev = dev
	return h, nil
}

// handle is a live capture stream. closeFrames is safe to call from both
// the malgo Stop callback (device lost) and the caller's Close (clean
// shutdown); only the first call actually closes the channel.
type handle struct {
	dev    *malgo.Device
	frames chan ports.Frame

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (h *handle) Frames() <-chan ports.Frame { return h.frames }

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *handle) closeFrames() {
	h.closeOnce.Do(func() { close(h.frames) })
}

func (h *handle) Close() error {
	h.dev.Uninit()
	h.closeFrames()
	return nil
}

func classifyOpenError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access"):
		return fmt.Errorf("%w: %v", ports.ErrPermissionDenied, err)
	case strings.Contains(msg, "format") || strings.Contains(msg, "sample rate") || strings.Contains(msg, "channel"):
		return fmt.Errorf("%w: %v", ports.ErrConstraintsUnsatisfiable, err)
	default:
		return err
	}
}

func deviceIDToString(id malgo.DeviceID) string {
	var b strings.Builder
	for _, c := range id[:32] {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func stringToDeviceID(s string) (*malgo.DeviceID, error) {
	if len(s) > 32 {
		return nil, fmt.Errorf("device ID too long")
	}
	var id malgo.DeviceID
	copy(id[:], []byte(s))
	return &id, nil
}
