// Package logging provides the process-wide structured logger and
// context-scoped helpers for attaching session/component fields to log
// entries.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Configure replaces the global base logger, e.g. to set the level or
// redirect output in the composition root.
func Configure(level string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	base = zerolog.New(out).With().Timestamp().Logger()
}

// Base returns the process-wide logger.
func Base() *zerolog.Logger { return &base }

// Component returns a logger tagged with the given component name, e.g.
// "engine" or "store".
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

type ctxKey string

const loggerKey ctxKey = "logger"

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or the base logger if
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
			return &l
		}
	}
	return &base
}

// WithSession returns a context carrying a logger tagged with the given
// session id, for engine/store call sites that operate on one session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	l := FromContext(ctx).With().Str("session_id", sessionID).Logger()
	return WithContext(ctx, l)
}
