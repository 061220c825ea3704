// Package engine implements the Recording Engine: the state machine
// coordinating the Device Port, Encoder, Level Meter, segmentation policy
// and the Blob/Session/Recovery stores (spec §4.1). Concurrency is
// grounded on the teacher's internal/service/recording.go
// processAudio/processChunks goroutine-and-channel structure, generalized
// from "mic/system capture + chunk buffer" into a single command-channel
// funneled control loop per spec §5's single-writer model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"taverntapesd/internal/clock"
	"taverntapesd/internal/encoder"
	"taverntapesd/internal/ids"
	"taverntapesd/internal/levelmeter"
	"taverntapesd/internal/logging"
	"taverntapesd/internal/model"
	"taverntapesd/internal/ports"
	"taverntapesd/internal/store"
	"taverntapesd/internal/validate"
)

// EncoderFactory constructs a fresh Encoder for the given format/quality.
type EncoderFactory func(format model.Format, sampleRate, channels, qualityKbps int) (encoder.Encoder, error)

// Deps are the Engine's constructor-injected collaborators. No store
// depends back on the Engine (spec §9: "no back-references from stores to
// the Engine").
type Deps struct {
	Device      ports.DevicePort
	Store       *store.Store
	Clock       clock.Clock
	NewEncoder  EncoderFactory
	Status      ports.RecordingStatusPort
	CrashSignal ports.CrashSignalPort // optional; nil disables crash-signal checkpointing
}

const (
	sampleRateHz        = 44100
	channels             = 2
	defaultChunkCeiling  = 100
	stopTimeout          = 10 * time.Second
	checkpointInterval   = 5 * time.Second
	durationTickInterval = 1 * time.Second
	bytesPerMB           = 1 << 20
	maxBlobRetries       = 3
)

// Engine drives a single recording at a time.
type Engine struct {
	deps Deps
	log  zerolog.Logger

	state atomic.Value // State

	cmdCh        chan any
	deviceLostCh chan struct{}
	done         chan struct{}
}

// New constructs an Engine and starts its control loop. Close stops it.
func New(deps Deps) *Engine {
	if deps.Status == nil {
		deps.Status = ports.NoopRecordingStatusPort{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.SystemClock{}
	}
	e := &Engine{
		deps:         deps,
		log:          logging.Component("engine"),
		cmdCh:        make(chan any, 8),
		deviceLostCh: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	e.state.Store(StateIdle)
	go e.run()
	return e
}

// Close stops the control loop. Safe to call once.
func (e *Engine) Close() { close(e.done) }

// State returns the current state. Safe for concurrent use.
func (e *Engine) State() State { return e.state.Load().(State) }

// --- public operations (spec §4.1 "Operations (contracts)") ---

type startResult struct{ err error }

// Start begins a new recording. See spec §4.1 for the full contract.
func (e *Engine) Start(ctx context.Context, name string, opts model.RecordingOptions) error {
	resp := make(chan startResult, 1)
	e.send(startReq{ctx: ctx, name: name, opts: opts, resp: resp})
	r := <-resp
	return r.err
}

// Pause is legal only while Recording.
func (e *Engine) Pause() error {
	resp := make(chan error, 1)
	e.send(pauseReq{resp: resp})
	return <-resp
}

// Resume is legal only while Paused.
func (e *Engine) Resume() error {
	resp := make(chan error, 1)
	e.send(resumeReq{resp: resp})
	return <-resp
}

type stopResult struct {
	meta model.SessionMetadata
	err  error
}

// Stop finalizes the current recording, bounded by a 10s timeout.
func (e *Engine) Stop(ctx context.Context) (model.SessionMetadata, error) {
	resp := make(chan stopResult, 1)
	e.send(stopReq{ctx: ctx, resp: resp})
	r := <-resp
	return r.meta, r.err
}

// ForceStop is a best-effort variant always returning to Idle.
func (e *Engine) ForceStop() model.SessionMetadata {
	resp := make(chan model.SessionMetadata, 1)
	e.send(forceStopReq{resp: resp})
	return <-resp
}

// SetLevelCallback registers a sink for normalized loudness values.
func (e *Engine) SetLevelCallback(fn func(level float64)) {
	e.send(setLevelCallbackReq{fn: fn})
}

// GetRecoveryState reads the single-slot checkpoint without mutating
// engine state.
func (e *Engine) GetRecoveryState() (*model.RecoveryCheckpoint, error) {
	return e.deps.Store.GetRecoveryCheckpoint()
}

// ClearRecoveryState erases the single-slot checkpoint.
func (e *Engine) ClearRecoveryState() error {
	return e.deps.Store.DeleteRecoveryCheckpoint()
}

// Recover re-enters Recording adopting a previously-saved checkpoint's
// name/start/duration (spec §4.1 "Idle --recover(checkpoint)--> Recording").
func (e *Engine) Recover(ctx context.Context, cp model.RecoveryCheckpoint) error {
	resp := make(chan error, 1)
	e.send(recoverReq{ctx: ctx, cp: cp, resp: resp})
	return <-resp
}

func (e *Engine) send(cmd any) {
	select {
	case e.cmdCh <- cmd:
	case <-e.done:
	}
}

// --- command envelopes ---

type startReq struct {
	ctx  context.Context
	name string
	opts model.RecordingOptions
	resp chan startResult
}
type pauseReq struct{ resp chan error }
type resumeReq struct{ resp chan error }
type stopReq struct {
	ctx  context.Context
	resp chan stopResult
}
type forceStopReq struct{ resp chan model.SessionMetadata }
type recoverReq struct {
	ctx  context.Context
	cp   model.RecoveryCheckpoint
	resp chan error
}
type setLevelCallbackReq struct{ fn func(float64) }

// --- run loop state (owned exclusively by run; never touched elsewhere) ---

type liveSession struct {
	sessionID         ids.SessionId
	sessionName       string
	startTime         time.Time
	activeSeconds     float64
	opts              model.RecordingOptions

	currentSegmentID  ids.SegmentId
	segSequence       int
	segments          []model.SegmentRef

	enc               encoder.Encoder
	device            ports.DeviceHandle
	frameDone         chan struct{}
	chunkDone         chan struct{}

	lastSplitWallTime time.Time
	chunkCountSplit   int
}

func (e *Engine) run() {
	meter := levelmeter.New()
	var levelCb func(float64)

	frameCh := make(chan ports.Frame, 256)
	chunkCh := make(chan []byte, 16)

	durationTicker := time.NewTicker(durationTickInterval)
	defer durationTicker.Stop()
	checkpointTicker := time.NewTicker(checkpointInterval)
	defer checkpointTicker.Stop()

	var crashCh <-chan struct{}
	if e.deps.CrashSignal != nil {
		crashCh = e.deps.CrashSignal.Subscribe()
	}

	var live *liveSession

	setState := func(s State) { e.state.Store(s) }

	for {
		select {
		case <-e.done:
			return

		case cmd := <-e.cmdCh:
			switch c := cmd.(type) {
			case startReq:
				if _, ok := Next(e.State(), EventStart); !ok {
					c.resp <- startResult{err: model.ErrAlreadyRecording}
					continue
				}
				setState(StateStarting)
				l, err := e.handleStart(c.ctx, c.name, c.opts, frameCh, chunkCh, meter)
				if err != nil {
					setState(StateIdle)
					c.resp <- startResult{err: err}
					continue
				}
				live = l
				next, _ := Next(StateStarting, EventDeviceReady)
				setState(next)
				e.deps.Status.SetRecording(true)
				c.resp <- startResult{}

			case pauseReq:
				next, ok := Next(e.State(), EventPause)
				if !ok {
					c.resp <- fmt.Errorf("%w: pause requires Recording", model.ErrNotRecording)
					continue
				}
				setState(next)
				meter.SetActive(false)
				c.resp <- nil

			case resumeReq:
				next, ok := Next(e.State(), EventResume)
				if !ok {
					c.resp <- fmt.Errorf("%w: resume requires Paused", model.ErrIllegalTransition)
					continue
				}
				setState(next)
				meter.SetActive(true)
				c.resp <- nil

			case stopReq:
				if _, ok := Next(e.State(), EventStop); !ok {
					c.resp <- stopResult{err: model.ErrNotRecording}
					continue
				}
				setState(StateStopping)
				meta, err := e.handleStop(c.ctx, live)
				live = nil
				next, _ := Next(StateStopping, EventFinalSegmentFinalized)
				setState(next)
				e.deps.Status.SetRecording(false)
				meter.SetActive(false)
				c.resp <- stopResult{meta: meta, err: err}

			case forceStopReq:
				meta := e.handleForceStop(live)
				live = nil
				setState(StateIdle)
				e.deps.Status.SetRecording(false)
				meter.SetActive(false)
				c.resp <- meta

			case recoverReq:
				if _, ok := Next(e.State(), EventRecover); !ok {
					c.resp <- model.ErrAlreadyRecording
					continue
				}
				l, err := e.handleRecover(c.ctx, c.cp, frameCh, chunkCh, meter)
				if err != nil {
					c.resp <- err
					continue
				}
				live = l
				next, _ := Next(StateIdle, EventRecover)
				setState(next)
				e.deps.Status.SetRecording(true)
				c.resp <- nil

			case setLevelCallbackReq:
				levelCb = c.fn
			}

		case frame := <-frameCh:
			if live == nil || live.enc == nil {
				continue
			}
			// Splitting is a brief sub-state of Recording (the encoder swap
			// happens inside it); frames must keep flowing to whichever
			// encoder is currently live so the overlap window doesn't drop
			// audio. Paused/Stopping/Idle/Failed must not accumulate bytes.
			if s := e.State(); s == StateRecording || s == StateSplitting {
				if err := live.enc.Write(frame.Samples); err != nil {
					e.log.Warn().Err(err).Msg("encoder write failed")
				}
			}
			level := meter.Sample(frame.Samples, e.deps.Clock.Now())
			if levelCb != nil && e.State() == StateRecording {
				levelCb(level)
			}

		case chunk := <-chunkCh:
			if live == nil {
				continue
			}
			e.handleChunk(live, chunk, chunkCh, frameCh)

		case <-durationTicker.C:
			if live != nil && e.State() == StateRecording {
				live.activeSeconds += durationTickInterval.Seconds()
			}

		case <-checkpointTicker.C:
			if live != nil && (e.State() == StateRecording || e.State() == StatePaused) {
				e.writeCheckpoint(live)
			}

		case <-crashCh:
			if live != nil && (e.State() == StateRecording || e.State() == StatePaused) {
				e.writeCheckpoint(live)
			}

		case <-e.deviceLostCh:
			if live != nil {
				e.handleDeviceLost(live)
				live = nil
				setState(StateFailed)
				e.deps.Status.SetRecording(false)
				meter.SetActive(false)
			}
		}
	}
}

// handleDeviceLost attempts to finalize the in-progress blob and write a
// truncated Session record (spec §4.1 "Device lost mid-stream").
func (e *Engine) handleDeviceLost(live *liveSession) {
	meta := e.metadataFor(live)
	if live.segSequence > 0 {
		if ref, err := e.saveBlobWithRetry(live.currentSegmentID, live.enc.CurrentBlob(), meta, live.segSequence); err == nil {
			live.segments = append(live.segments, ref)
		} else {
			e.log.Error().Err(err).Msg("device lost: failed to persist in-progress blob")
		}
	}
	e.finalizeBestEffort(live, meta)
	e.log.Error().Msg(model.ErrDeviceLost.Error())
}

// --- start / recover ---

func (e *Engine) handleStart(ctx context.Context, name string, opts model.RecordingOptions, frameCh chan ports.Frame, chunkCh chan []byte, meter *levelmeter.Meter) (*liveSession, error) {
	if e.State() != StateIdle {
		return nil, model.ErrAlreadyRecording
	}

	sanitized := sanitizeName(name)
	if sanitized == "" {
		sanitized = fmt.Sprintf("Session_%s", e.deps.Clock.Now().Format("2006-01-02_1504"))
	} else if err := validate.SessionName(sanitized); err != nil {
		return nil, err
	}

	deviceID := opts.InputDeviceID
	if deviceID == "" {
		deviceID = "default"
	}
	device, err := e.deps.Device.Open(ctx, ports.DeviceConfig{
		DeviceID:     deviceID,
		SampleRateHz: sampleRateHz,
		Channels:     channels,
	})
	if err != nil {
		return nil, classifyDeviceError(err)
	}

	enc, err := e.deps.NewEncoder(opts.Format, sampleRateHz, channels, opts.QualityKbps)
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("%w: %v", model.ErrConstraintsUnsatisfiable, err)
	}

	now := e.deps.Clock.Now()
	live := &liveSession{
		sessionID:         ids.NewSessionId(),
		sessionName:       sanitized,
		startTime:         now,
		opts:              opts,
		enc:               enc,
		device:            device,
		lastSplitWallTime: now,
	}
	meter.SetActive(true)
	e.startForwarders(live, frameCh, chunkCh)
	return live, nil
}

func (e *Engine) handleRecover(ctx context.Context, cp model.RecoveryCheckpoint, frameCh chan ports.Frame, chunkCh chan []byte, meter *levelmeter.Meter) (*liveSession, error) {
	if e.State() != StateIdle {
		return nil, model.ErrAlreadyRecording
	}
	device, err := e.deps.Device.Open(ctx, ports.DeviceConfig{DeviceID: "default", SampleRateHz: sampleRateHz, Channels: channels})
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	opts := model.RecordingOptions{Format: cp.Metadata.Format, QualityKbps: cp.Metadata.QualityKbps}
	enc, err := e.deps.NewEncoder(opts.Format, sampleRateHz, channels, opts.QualityKbps)
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("%w: %v", model.ErrConstraintsUnsatisfiable, err)
	}
	now := e.deps.Clock.Now()
	live := &liveSession{
		sessionID:         ids.NewSessionId(),
		sessionName:       cp.SessionName,
		startTime:         cp.StartTime,
		activeSeconds:     cp.DurationSeconds,
		opts:              opts,
		enc:               enc,
		device:            device,
		lastSplitWallTime: now,
	}
	meter.SetActive(true)
	e.startForwarders(live, frameCh, chunkCh)
	return live, nil
}

func (e *Engine) startForwarders(live *liveSession, frameCh chan ports.Frame, chunkCh chan []byte) {
	live.frameDone = make(chan struct{})
	live.chunkDone = make(chan struct{})
	go forwardFrames(live.device, frameCh, live.frameDone, e.deviceLostCh)
	go forwardChunks(live.enc, chunkCh, live.chunkDone)
}

// forwardFrames copies PCM frames from the device handle onto out until
// done is closed or the device channel closes. An abnormal closure (the
// handle reports a non-nil Err) signals lostCh so the run loop can
// transition to Failed (spec §4.1 "Device lost mid-stream").
func forwardFrames(h ports.DeviceHandle, out chan<- ports.Frame, done <-chan struct{}, lostCh chan<- struct{}) {
	for {
		select {
		case f, ok := <-h.Frames():
			if !ok {
				if h.Err() != nil {
					select {
					case lostCh <- struct{}{}:
					default:
					}
				}
				return
			}
			select {
			case out <- f:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

func forwardChunks(enc encoder.Encoder, out chan<- []byte, done <-chan struct{}) {
	for {
		select {
		case c, ok := <-enc.Chunks():
			if !ok {
				return
			}
			select {
			case out <- c:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// --- chunk handling & segmentation (spec §4.1 "Chunk handling",
// "Segmentation policy") ---

func (e *Engine) handleChunk(live *liveSession, _ []byte, chunkCh chan []byte, frameCh chan ports.Frame) {
	if e.State() != StateRecording {
		return
	}
	if live.segSequence == 0 {
		live.currentSegmentID = ids.NewSegmentId()
		live.segSequence = 1
	}
	live.chunkCountSplit++

	meta := e.metadataFor(live)
	if _, err := e.saveBlobWithRetry(live.currentSegmentID, live.enc.CurrentBlob(), meta, live.segSequence); err != nil {
		e.log.Error().Err(err).Msg("blob write failed after retries")
		e.state.Store(StateFailed)
		return
	}

	if e.splitShouldFire(live) {
		e.performSplit(live, chunkCh, frameCh)
	}
}

func (e *Engine) splitShouldFire(live *liveSession) bool {
	if live.chunkCountSplit >= defaultChunkCeiling {
		return true
	}
	now := e.deps.Clock.Now()
	if live.opts.SplitIntervalMinutes > 0 {
		if now.Sub(live.lastSplitWallTime) >= time.Duration(live.opts.SplitIntervalMinutes)*time.Minute {
			return true
		}
	}
	if live.opts.SplitSizeMB > 0 {
		if live.enc.BytesWritten() >= live.opts.SplitSizeMB*bytesPerMB {
			return true
		}
	}
	return false
}

func (e *Engine) performSplit(live *liveSession, chunkCh chan []byte, frameCh chan ports.Frame) {
	next, _ := Next(StateRecording, EventSplitTrigger)
	e.state.Store(next)
	defer func() {
		resumed, _ := Next(StateSplitting, EventSegmentFinalized)
		e.state.Store(resumed)
	}()

	oldEnc := live.enc
	oldChunkDone := live.chunkDone
	oldSegmentID := live.currentSegmentID
	oldSeq := live.segSequence

	newEnc, err := e.deps.NewEncoder(live.opts.Format, sampleRateHz, channels, live.opts.QualityKbps)
	if err != nil {
		e.log.Error().Err(err).Msg("split: new encoder failed, continuing on current segment")
		return
	}
	// Swap first so incoming frames route to the new encoder before the
	// old one is asked to stop (overlap window per spec §4.1).
	live.enc = newEnc
	live.chunkDone = make(chan struct{})
	go forwardChunks(newEnc, chunkCh, live.chunkDone)

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	finalBytes, err := oldEnc.Stop(ctx)
	close(oldChunkDone)
	if err != nil {
		e.log.Error().Err(err).Msg("split: failed to finalize old encoder")
	}

	meta := e.metadataFor(live)
	ref, err := e.saveBlobWithRetry(oldSegmentID, finalBytes, meta, oldSeq)
	if err != nil {
		e.log.Error().Err(err).Msg("split: segment persist failed after retries")
		e.state.Store(StateFailed)
		return
	}
	live.segments = append(live.segments, ref)

	live.segSequence++
	live.currentSegmentID = ids.NewSegmentId()
	live.chunkCountSplit = 0
	live.lastSplitWallTime = e.deps.Clock.Now()
}

func (e *Engine) metadataFor(live *liveSession) model.SessionMetadata {
	return model.SessionMetadata{
		SessionName:     live.sessionName,
		StartTime:       live.startTime,
		DurationSeconds: live.activeSeconds,
		FileSizeBytes:   live.enc.BytesWritten(),
		Format:          live.opts.Format,
		QualityKbps:     live.opts.QualityKbps,
	}
}

// saveBlobWithRetry implements spec §4.1's "retry up to 3 times with
// exponential backoff (1 s × attempt)" for blob append failures.
func (e *Engine) saveBlobWithRetry(id ids.SegmentId, bytes []byte, meta model.SessionMetadata, seq int) (model.SegmentRef, error) {
	var lastErr error
	for attempt := 1; attempt <= maxBlobRetries; attempt++ {
		ref, err := e.deps.Store.SaveBlob(id, bytes, meta, seq)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return model.SegmentRef{}, lastErr
}

// --- stop / force stop ---

func (e *Engine) handleStop(ctx context.Context, live *liveSession) (model.SessionMetadata, error) {
	if live == nil {
		return model.SessionMetadata{}, model.ErrNotRecording
	}
	// Stop is accepted from Paused as well as Recording. Pausing never
	// pauses the encoder (frames that arrive while paused are simply not
	// written to it), so the encoder is stopped directly, with no resume step.
	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	finalBytes, err := live.enc.Stop(stopCtx)
	close(live.chunkDone)
	close(live.frameDone)
	live.device.Close()

	if stopCtx.Err() != nil {
		synthetic := e.synthetic(live)
		e.finalizeBestEffort(live, synthetic)
		return synthetic, model.ErrStopTimeout
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("encoder stop reported an error; proceeding with partial bytes")
	}

	meta := e.metadataFor(live)
	if len(finalBytes) > 0 {
		// A recording stopped before its first timeslice flush never ran
		// handleChunk's segment-assignment branch, so currentSegmentID/
		// segSequence are still their zero values; assign them now so the
		// persisted segment still gets a real id and a 1-based sequence
		// index (spec §3: SegmentId never reused, sequence_index >= 1).
		if live.segSequence == 0 {
			live.currentSegmentID = ids.NewSegmentId()
			live.segSequence = 1
		}
		ref, saveErr := e.saveBlobWithRetry(live.currentSegmentID, finalBytes, meta, live.segSequence)
		if saveErr != nil {
			synthetic := e.synthetic(live)
			return synthetic, fmt.Errorf("%w: %v", model.ErrBlobWriteFailed, saveErr)
		}
		live.segments = append(live.segments, ref)
	}

	sess := &model.Session{
		ID:        live.sessionID,
		CreatedAt: live.startTime,
		Metadata:  meta,
		Segments:  live.segments,
	}
	if err := e.putSessionWithRetry(sess); err != nil {
		// The blobs are already durable; only the session record write
		// failed (spec §4.1 "Session Store failure on finalize").
		return meta, fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	if err := e.deps.Store.DeleteRecoveryCheckpoint(); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear recovery checkpoint after clean stop")
	}
	return meta, nil
}

func (e *Engine) putSessionWithRetry(sess *model.Session) error {
	var lastErr error
	for attempt := 1; attempt <= maxBlobRetries; attempt++ {
		if err := e.deps.Store.PutSession(sess); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return lastErr
}

func (e *Engine) handleForceStop(live *liveSession) model.SessionMetadata {
	if live == nil {
		return model.SessionMetadata{Format: model.FormatUnknown}
	}
	if live.device != nil {
		live.device.Close()
	}
	if live.chunkDone != nil {
		select {
		case <-live.chunkDone:
		default:
			close(live.chunkDone)
		}
	}
	if live.frameDone != nil {
		select {
		case <-live.frameDone:
		default:
			close(live.frameDone)
		}
	}
	meta := e.synthetic(live)
	e.finalizeBestEffort(live, meta)
	return meta
}

// synthetic builds a best-effort SessionMetadata per spec §7: "possibly
// synthetic: file_size_bytes = 0, format "unknown", quality = 0".
func (e *Engine) synthetic(live *liveSession) model.SessionMetadata {
	return model.SessionMetadata{
		SessionName:     live.sessionName,
		StartTime:       live.startTime,
		DurationSeconds: live.activeSeconds,
		FileSizeBytes:   0,
		Format:          model.FormatUnknown,
		QualityKbps:     0,
	}
}

// finalizeBestEffort writes a truncated Session record and clears the
// checkpoint, used by ForceStop and StopTimeout paths.
func (e *Engine) finalizeBestEffort(live *liveSession, meta model.SessionMetadata) {
	sess := &model.Session{
		ID:        live.sessionID,
		CreatedAt: live.startTime,
		Metadata:  meta,
		Segments:  live.segments,
	}
	if err := e.deps.Store.PutSession(sess); err != nil {
		e.log.Error().Err(err).Msg("best-effort session persist failed")
	}
	if err := e.deps.Store.DeleteRecoveryCheckpoint(); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear recovery checkpoint")
	}
}

// --- checkpointing (spec §4.1 "Checkpointing") ---

func (e *Engine) writeCheckpoint(live *liveSession) {
	var ref *model.SegmentRef
	if len(live.segments) > 0 {
		r := live.segments[len(live.segments)-1]
		ref = &r
	}
	cp := model.RecoveryCheckpoint{
		SessionName:       live.sessionName,
		StartTime:         live.startTime,
		DurationSeconds:   live.activeSeconds,
		IsPaused:          e.State() == StatePaused,
		CurrentSegmentRef: ref,
		Metadata:          e.metadataFor(live),
	}
	if err := e.deps.Store.PutRecoveryCheckpoint(cp); err != nil {
		e.log.Warn().Err(err).Msg("checkpoint write failed")
	}
}

// --- helpers ---

// sanitizeName trims surrounding whitespace, collapses internal whitespace
// runs to a single space, and drops any character outside
// validate.SessionName's allowed set, so that a name containing stray
// control characters or doubled spaces from a host UI doesn't fail
// validation for reasons the caller never intended (spec §4.1: "sanitized
// name is used").
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	lastWasSpace := false
	for _, r := range name {
		switch {
		case r == ' ':
			if !lastWasSpace {
				b.WriteRune(r)
			}
			lastWasSpace = true
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
			lastWasSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

func classifyDeviceError(err error) error {
	switch {
	case errors.Is(err, ports.ErrPermissionDenied):
		return fmt.Errorf("%w: %v", model.ErrPermissionDenied, err)
	case errors.Is(err, ports.ErrConstraintsUnsatisfiable):
		return fmt.Errorf("%w: %v", model.ErrConstraintsUnsatisfiable, err)
	default:
		return fmt.Errorf("%w: %v", model.ErrNoInputDevice, err)
	}
}
