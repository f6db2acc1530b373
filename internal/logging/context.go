package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WithFields returns a context carrying a child of the global logger
// with the given string fields attached.
func WithFields(ctx context.Context, fields map[string]string) context.Context {
	lc := log.Logger.With()
	for k, v := range fields {
		lc = lc.Str(k, v)
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}

// Ctx returns the logger attached to ctx, or the global logger when the
// context carries none.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
