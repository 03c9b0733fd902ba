package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"regbot/cmd/internal/metrics"
)

type job struct {
	inv    Invitation
	result chan error
}

// Dispatcher runs sends on a fixed worker pool so callers never block on SMTP.
// Every submitted job reports exactly one result on its channel.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics records delivery results.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithSendTimeout bounds a single delivery (default 30s).
func WithSendTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDispatcher starts workers goroutines draining a queue of size queue.
func NewDispatcher(sender Sender, log *slog.Logger, workers, queue int, opts ...DispatcherOption) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queue <= 0 {
		queue = 64
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		timeout: 30 * time.Second,
		jobs:    make(chan job, queue),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Submit enqueues inv. The returned channel yields nil on delivery or an error
// wrapping ErrDelivery; it is buffered so nobody has to read it.
func (d *Dispatcher) Submit(ctx context.Context, inv Invitation) <-chan error {
	res := make(chan error, 1)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		res <- ErrClosed
		return res
	}
	select {
	case d.jobs <- job{inv: inv, result: res}:
	case <-ctx.Done():
		res <- ctx.Err()
	}
	return res
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sender.Send(ctx, j.inv)
		cancel()
		d.metrics.IncMail(err == nil)
		if err != nil {
			d.log.Warn("mail.send.fail", "team_id", j.inv.TeamID, "err", err)
		} else {
			d.log.Info("mail.sent", "team_id", j.inv.TeamID)
		}
		j.result <- err
	}
}
