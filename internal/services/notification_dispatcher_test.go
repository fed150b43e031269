package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yemalin/api/internal/notifications"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notifications.Job
	err  error
}

func (s *recordingSender) Send(_ context.Context, job notifications.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type blockingSender struct {
	release chan struct{}
}

func (s *blockingSender) Send(context.Context, notifications.Job) error {
	<-s.release
	return nil
}

func TestDispatcherDeliversAllBeforeFlushReturns(t *testing.T) {
	sender := &recordingSender{}
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Sender:  sender,
		Workers: 2,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}
	defer dispatcher.Close(context.Background())

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := dispatcher.Enqueue(ctx, notifications.Job{
			Channel:   notifications.ChannelEmail,
			Template:  "welcome_series_v1",
			Recipient: "a@example.com",
		}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	if err := dispatcher.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := sender.count(); got != 20 {
		t.Fatalf("sent = %d, want 20", got)
	}

	if sender.sent[0].ID == "" {
		t.Fatal("job id not assigned on enqueue")
	}
	if sender.sent[0].EnqueuedAt.IsZero() {
		t.Fatal("enqueue time not assigned")
	}
}

func TestDispatcherCloseRejectsFurtherJobs(t *testing.T) {
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{Sender: &recordingSender{}})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}

	ctx := context.Background()
	if err := dispatcher.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dispatcher.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	err = dispatcher.Enqueue(ctx, notifications.Job{Channel: notifications.ChannelEmail})
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Enqueue after close = %v, want ErrDispatcherClosed", err)
	}
}

func TestDispatcherBoundedQueueRejects(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Sender:    sender,
		Workers:   1,
		QueueSize: 1,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}

	ctx := context.Background()
	var full bool
	for i := 0; i < 3; i++ {
		if err := dispatcher.Enqueue(ctx, notifications.Job{Channel: notifications.ChannelEmail}); errors.Is(err, ErrDispatcherQueueFull) {
			full = true
		}
	}
	if !full {
		t.Fatal("expected at least one queue-full rejection")
	}

	close(sender.release)
	if err := dispatcher.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDispatcherFlushHonorsContext(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Sender:  sender,
		Workers: 1,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}

	if err := dispatcher.Enqueue(context.Background(), notifications.Job{Channel: notifications.ChannelSMS}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dispatcher.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Flush = %v, want deadline exceeded", err)
	}

	close(sender.release)
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDispatcherEnqueueDuringTimedOutClose(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Sender:    sender,
		Workers:   1,
		QueueSize: 2,
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}

	// Occupy the worker so jobs stay pending through the whole shutdown.
	if err := dispatcher.Enqueue(context.Background(), notifications.Job{Channel: notifications.ChannelEmail}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := dispatcher.Enqueue(context.Background(), notifications.Job{Channel: notifications.ChannelSMS})
				if errors.Is(err, ErrDispatcherClosed) {
					return
				}
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- dispatcher.Close(ctx) }()

	wg.Wait()
	close(sender.release)
	if err := <-done; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close = %v, want deadline exceeded", err)
	}
}

func TestDispatcherLogsSendFailures(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	dispatcher, err := NewNotificationDispatcher(NotificationDispatcherDeps{
		Sender: &recordingSender{err: errors.New("smtp down")},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewNotificationDispatcher: %v", err)
	}

	ctx := context.Background()
	if err := dispatcher.Enqueue(ctx, notifications.Job{Channel: notifications.ChannelEmail}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := dispatcher.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != "notification.send_failed" {
		t.Fatalf("logged events = %v", events)
	}
}
