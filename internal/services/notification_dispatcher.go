package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yemalin/api/internal/notifications"
)

const (
	defaultDispatcherWorkers = 4
	defaultDispatcherQueue   = 256
)

var (
	// ErrDispatcherClosed indicates the dispatcher no longer accepts jobs.
	ErrDispatcherClosed = errors.New("notification dispatcher: closed")
	// ErrDispatcherQueueFull indicates the bounded queue rejected the job.
	ErrDispatcherQueueFull = errors.New("notification dispatcher: queue full")
)

// NotificationDispatcherDeps bundles collaborators for the dispatcher.
type NotificationDispatcherDeps struct {
	Sender      notifications.Sender
	Workers     int
	QueueSize   int
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type notificationDispatcher struct {
	sender notifications.Sender
	queue  chan notifications.Job
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	closed  bool

	workers sync.WaitGroup
}

// NewNotificationDispatcher starts a worker pool draining queued jobs into
// the sender. Send failures are logged; the job is not retried.
func NewNotificationDispatcher(deps NotificationDispatcherDeps) (NotificationDispatcher, error) {
	if deps.Sender == nil {
		return nil, errors.New("notification dispatcher: sender is required")
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = defaultDispatcherWorkers
	}
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultDispatcherQueue
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	d := &notificationDispatcher{
		sender: deps.Sender,
		queue:  make(chan notifications.Job, queueSize),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		logger: logger,
	}
	d.cond = sync.NewCond(&d.mu)

	d.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d, nil
}

// Enqueue queues the job for delivery. It assigns an ID and enqueue time
// when the caller left them unset.
func (d *notificationDispatcher) Enqueue(_ context.Context, job notifications.Job) error {
	if job.ID == "" {
		job.ID = d.newID()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = d.clock()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	// The send stays under the lock: Close takes it before closing the
	// queue, so a send on the closed channel cannot happen. The send is
	// non-blocking, the lock is never held waiting on a worker.
	select {
	case d.queue <- job:
		d.pending++
		return nil
	default:
		return ErrDispatcherQueueFull
	}
}

// Flush blocks until every queued job has been handed to the sender, or the
// context expires.
func (d *notificationDispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.mu.Lock()
		for d.pending > 0 {
			d.cond.Wait()
		}
		d.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding jobs and stops the workers. Further Enqueue
// calls fail with ErrDispatcherClosed.
func (d *notificationDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.Flush(ctx)
	close(d.queue)
	d.workers.Wait()
	return err
}

func (d *notificationDispatcher) run() {
	defer d.workers.Done()
	for job := range d.queue {
		ctx := context.Background()
		if err := d.sender.Send(ctx, job); err != nil {
			d.logger(ctx, "notification.send_failed", map[string]any{
				"job_id":   job.ID,
				"channel":  string(job.Channel),
				"template": job.Template,
				"error":    err.Error(),
			})
		}
		d.finish()
	}
}

func (d *notificationDispatcher) finish() {
	d.mu.Lock()
	d.pending--
	if d.pending <= 0 {
		d.cond.Broadcast()
	}
	d.mu.Unlock()
}
