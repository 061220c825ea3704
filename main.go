// Command taverntapesd is the composition root: it wires configuration,
// logging, the badger-backed stores, the audio device and the Recording
// Engine, then serves until terminated. Adapted from the teacher's flat
// main.go wiring order (config -> logging -> managers -> services), but
// built around the single Recording Engine instead of the teacher's
// session/model/transcription manager trio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"taverntapesd/internal/audio"
	"taverntapesd/internal/catalog"
	"taverntapesd/internal/config"
	"taverntapesd/internal/encoder"
	"taverntapesd/internal/engine"
	"taverntapesd/internal/localfs"
	"taverntapesd/internal/logging"
	"taverntapesd/internal/model"
	"taverntapesd/internal/ports"
	"taverntapesd/internal/store"
)

// crashSignal is a ports.CrashSignalPort backed by SIGINT/SIGTERM: each
// delivery of either signal is forwarded once, giving the Engine a chance
// to checkpoint before this process's own shutdown sequence runs.
type crashSignal struct {
	ch chan struct{}
}

func newCrashSignal() *crashSignal {
	cs := &crashSignal{ch: make(chan struct{}, 1)}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			select {
			case cs.ch <- struct{}{}:
			default:
			}
		}
	}()
	return cs
}

func (cs *crashSignal) Subscribe() <-chan struct{} { return cs.ch }

var _ ports.CrashSignalPort = (*crashSignal)(nil)

func main() {
	cfg := config.Load()
	logging.Configure(cfg.LogLevel, os.Stdout)
	log := logging.Component("main")

	var fs ports.FilePort = localfs.New()
	if err := fs.Mkdir(cfg.DataDir); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}
	if err := fs.Mkdir(cfg.RecordingsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to create recordings directory")
	}

	// The data directory is created above through the FilePort adapter, so
	// directory bootstrap is an explicit FilePort.Mkdir step here (spec §9)
	// rather than left to store.Open, although badger would also create a
	// missing directory itself.
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	purgeOrphanBlobs(st, log)

	dev, err := audio.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio device")
	}
	defer dev.Close()

	crash := newCrashSignal()

	eng := engine.New(engine.Deps{
		Device:      dev,
		Store:       st,
		NewEncoder:  newEncoder,
		CrashSignal: crash,
	})
	defer eng.Close()

	cat := catalog.New(st)
	_ = cat // exercised by the (not-yet-built) host UI/API layer; this binary only hosts the recording surface.

	logRecoveryAvailability(eng, log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("taverntapesd ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutdown signal received")
	if eng.State() == engine.StateRecording || eng.State() == engine.StatePaused {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := eng.Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("failed to stop in-progress recording during shutdown")
		}
	}
	log.Info().Msg("taverntapesd exiting")
}

// newEncoder selects the Encoder implementation for format (spec §4.2).
func newEncoder(format model.Format, sampleRate, channels, qualityKbps int) (encoder.Encoder, error) {
	switch format {
	case model.FormatWAV, "":
		return encoder.NewWAVEncoder(sampleRate, channels), nil
	case model.FormatCompressed:
		return encoder.NewMP3Encoder(sampleRate, channels, qualityKbps), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", model.ErrConstraintsUnsatisfiable, format)
	}
}

// purgeOrphanBlobs deletes blobs no session references, left behind by a
// crash between a blob write and its owning session record (spec §9
// supplemented feature: startup orphan sweep).
func purgeOrphanBlobs(st *store.Store, log zerolog.Logger) {
	referenced, err := st.ReferencedBlobIDs()
	if err != nil {
		log.Warn().Err(err).Msg("failed to collect referenced blob ids; skipping orphan sweep")
		return
	}
	orphans, err := st.ListOrphans(referenced)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list orphan blobs; skipping orphan sweep")
		return
	}
	for _, id := range orphans {
		if err := st.DeleteBlob(id); err != nil {
			log.Warn().Err(err).Str("blob_id", id.String()).Msg("failed to delete orphan blob")
			continue
		}
		log.Info().Str("blob_id", id.String()).Msg("purged orphan blob")
	}
}

// logRecoveryAvailability surfaces a non-stale recovery checkpoint left by
// an unclean shutdown; the host UI/CLI decides whether to call
// Engine.Recover (spec §4.1 "Crash recovery on startup", §4.6 staleness).
func logRecoveryAvailability(eng *engine.Engine, log zerolog.Logger) {
	cp, err := eng.GetRecoveryState()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read recovery checkpoint")
		return
	}
	if cp == nil {
		return
	}
	if time.Since(cp.StartTime) > model.RecoveryStaleness {
		log.Info().Str("session_name", cp.SessionName).Msg("stale recovery checkpoint found, clearing")
		if err := eng.ClearRecoveryState(); err != nil {
			log.Warn().Err(err).Msg("failed to clear stale recovery checkpoint")
		}
		return
	}
	log.Info().Str("session_name", cp.SessionName).Msg("recovery checkpoint available")
}
