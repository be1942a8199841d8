// Package alert delivers policy-violation notices out of band. Delivery is
// fire-and-forget: the RPC path enqueues and returns, failures are logged.
package alert

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// Sink shows or records a notice somewhere a human will see it.
type Sink interface {
	Notify(ctx context.Context, reason string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, reason string) error

func (f SinkFunc) Notify(ctx context.Context, reason string) error { return f(ctx, reason) }

// LogSink writes the notice to the log. It never fails.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, reason string) error {
	log.Warn().Str("event", "security_alert").Str("reason", reason).Msg("SECURITY ALERT")
	return nil
}

// MultiSink delivers to every sink concurrently and joins their errors.
// A Notifier expands it and retries each member separately.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, reason string) error {
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0].Notify(ctx, reason)
	}
	p := pool.New().WithErrors()
	for _, s := range m {
		p.Go(func() error { return s.Notify(ctx, reason) })
	}
	return p.Wait()
}

// ErrPermanent marks a delivery error that retrying cannot fix.
var ErrPermanent = errors.New("permanent alert delivery failure")
