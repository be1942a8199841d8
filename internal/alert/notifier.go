package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"github.com/sourcegraph/conc/pool"
)

// NotifierConfig bounds the notifier's queue, concurrency and retries.
type NotifierConfig struct {
	QueueSize  int
	Workers    int
	MaxRetries uint64
	BaseDelay  time.Duration
	Timeout    time.Duration // per delivery attempt
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// Notifier queues alerts and delivers them on a worker pool. Alert never
// blocks: when the queue is full the alert is dropped and counted. Each sink
// of a MultiSink is retried on its own, so a sink that already took an alert
// never sees it twice.
type Notifier struct {
	sinks []Sink
	cfg   NotifierConfig
	queue chan string
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex // guards closed against concurrent Alert
	closed    bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewNotifier(sink Sink, cfg NotifierConfig) *Notifier {
	cfg = cfg.withDefaults()
	n := &Notifier{
		sinks: flatten(sink),
		cfg:   cfg,
		queue: make(chan string, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go n.run()
	return n
}

// Alert enqueues reason for delivery.
func (n *Notifier) Alert(reason string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.dropped.Add(1)
		log.Warn().Str("reason", reason).Msg("alert dropped: notifier closed")
		return
	}
	select {
	case n.queue <- reason:
	default:
		n.dropped.Add(1)
		log.Warn().Str("reason", reason).Msg("alert dropped: queue full")
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	p := pool.New().WithMaxGoroutines(n.cfg.Workers)
	for reason := range n.queue {
		p.Go(func() { n.deliver(reason) })
	}
	p.Wait()
}

func (n *Notifier) deliver(reason string) {
	var failed atomic.Bool
	if len(n.sinks) == 1 {
		failed.Store(!n.deliverTo(n.sinks[0], reason))
	} else {
		p := pool.New()
		for _, sink := range n.sinks {
			p.Go(func() {
				if !n.deliverTo(sink, reason) {
					failed.Store(true)
				}
			})
		}
		p.Wait()
	}
	if failed.Load() {
		n.failed.Add(1)
		return
	}
	n.delivered.Add(1)
}

// deliverTo retries one sink until it accepts reason, returns ErrPermanent,
// or runs out of retries.
func (n *Notifier) deliverTo(sink Sink, reason string) bool {
	backoff := retry.WithMaxRetries(n.cfg.MaxRetries, retry.NewExponential(n.cfg.BaseDelay))
	attempts := 0
	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		attempts++
		ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
		err := sink.Notify(ctx, reason)
		if err == nil || errors.Is(err, ErrPermanent) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		log.Error().Err(err).Int("attempts", attempts).Str("sink", fmt.Sprintf("%T", sink)).Str("reason", reason).Msg("alert delivery failed")
		return false
	}
	log.Debug().Int("attempts", attempts).Str("sink", fmt.Sprintf("%T", sink)).Str("reason", reason).Msg("alert delivered")
	return true
}

// flatten expands nested MultiSinks into their members.
func flatten(sink Sink) []Sink {
	m, ok := sink.(MultiSink)
	if !ok {
		return []Sink{sink}
	}
	var out []Sink
	for _, s := range m {
		out = append(out, flatten(s)...)
	}
	return out
}

// Close stops accepting alerts and waits until queued ones are delivered or
// ctx expires.
func (n *Notifier) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})
	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports delivery counters, one per alert: Delivered when every sink
// took it, Failed when at least one sink gave up.
type Stats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

func (n *Notifier) Stats() Stats {
	return Stats{
		Delivered: n.delivered.Load(),
		Failed:    n.failed.Load(),
		Dropped:   n.dropped.Load(),
	}
}
