// Package errtrack reports unexpected errors to Sentry. With no DSN
// configured every call is a no-op, so local runs and tests need no
// credentials.
package errtrack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

// Reporter captures errors with optional tags.
type Reporter interface {
	Capture(ctx context.Context, err error, tags map[string]string)
	// Flush blocks until buffered events are sent. Lambda calls it before
	// the invocation returns since the sandbox may freeze afterwards.
	Flush()
}

// Options configures the Sentry client.
type Options struct {
	DSN         string
	Release     string
	Environment string
	ServerName  string
}

// New returns a Sentry-backed Reporter, or Nop when DSN is empty.
func New(opts Options) (Reporter, error) {
	if opts.DSN == "" {
		log.Debug().Msg("SENTRY_DSN not set; error tracking disabled")
		return Nop{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Release:     opts.Release,
		Environment: opts.Environment,
		ServerName:  opts.ServerName,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &Sentry{hub: sentry.CurrentHub()}, nil
}

// Sentry sends events through a sentry hub.
type Sentry struct {
	hub *sentry.Hub
}

func (s *Sentry) Capture(_ context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := s.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func (s *Sentry) Flush() {
	if !s.hub.Flush(flushTimeout) {
		log.Warn().Msg("Sentry flush timed out")
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Capture(context.Context, error, map[string]string) {}
func (Nop) Flush()                                            {}

// Captured is one error seen by a Recorder.
type Captured struct {
	Err  error
	Tags map[string]string
}

// Recorder keeps captured errors in memory. Tests use it to assert what
// would have been reported.
type Recorder struct {
	mu       sync.Mutex
	captured []Captured
	flushes  int
}

func (r *Recorder) Capture(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, Captured{Err: err, Tags: tags})
}

func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
}

// Errors returns a copy of everything captured so far.
func (r *Recorder) Errors() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Captured(nil), r.captured...)
}

// Flushes returns how many times Flush was called.
func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}
