package logging

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewTraceContext returns a context carrying the structured trace logger used
// by the table builder.  When tracing is disabled the context carries a
// disabled logger so that `zerolog.Ctx` calls cost next to nothing.
func NewTraceContext(ctx context.Context, enabled bool) context.Context {
	return NewTraceContextTo(ctx, os.Stderr, enabled)
}

// NewTraceContextTo is NewTraceContext writing to the given writer
func NewTraceContextTo(ctx context.Context, w io.Writer, enabled bool) context.Context {
	if !enabled {
		l := zerolog.Nop()
		return l.WithContext(ctx)
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("service", "tsgen").
		Logger()

	return l.WithContext(ctx)
}
