// Package outbox drains queued messages through the delivery collaborator.
// Messages are sent one at a time with a pause in between so the messaging
// surface is never saturated.
package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/message"
	"github.com/patchlibrary/feedesk/internal/repository"
)

type Worker struct {
	store     repository.OutboxRepository
	sender    message.Sender
	logger    *slog.Logger
	interval  time.Duration
	sendDelay time.Duration
	batchSize int
	timeout   time.Duration

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Worker)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSendDelay sets the pause between consecutive sends.
func WithSendDelay(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.sendDelay = d
		}
	}
}

// WithBatchSize caps how many messages one drain pass picks up.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func NewWorker(store repository.OutboxRepository, sender message.Sender, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		store:     store,
		sender:    sender,
		logger:    logger,
		interval:  15 * time.Second,
		sendDelay: 3 * time.Second,
		batchSize: 25,
		timeout:   30 * time.Second,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start launches the polling loop. Safe to call once; later calls are no-ops.
func (w *Worker) Start() {
	w.once.Do(func() {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.logger.Info("outbox worker started",
				"interval", w.interval, "send_delay", w.sendDelay)

			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-w.stop:
					w.logger.Info("outbox worker stopped")
					return
				case <-ticker.C:
				case <-w.wake:
				}
				w.DrainOnce(context.Background())
			}
		}()
	})
}

// Notify wakes the worker ahead of its next tick, e.g. right after a batch
// of messages was enqueued.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// DrainOnce picks up the due PENDING messages and delivers them in queue
// order. A failed delivery marks that message FAILED and moves on.
func (w *Worker) DrainOnce(ctx context.Context) {
	listCtx, cancel := context.WithTimeout(ctx, w.timeout)
	msgs, err := w.store.DuePending(listCtx, w.batchSize)
	cancel()
	if err != nil {
		w.logger.Error("outbox.drain.list_failed", "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	w.logger.Info("outbox.drain.start", "due", len(msgs))
	for i, msg := range msgs {
		if i > 0 && w.sendDelay > 0 {
			select {
			case <-w.stop:
				w.logger.Warn("outbox.drain.interrupted", "remaining", len(msgs)-i)
				return
			case <-ctx.Done():
				w.logger.Warn("outbox.drain.interrupted", "remaining", len(msgs)-i)
				return
			case <-time.After(w.sendDelay):
			}
		}
		w.deliver(ctx, msg)
	}
}

func (w *Worker) deliver(ctx context.Context, msg *entity.OutboundMessage) {
	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.MarkSending(sendCtx, msg.ID); err != nil {
		w.logger.Error("outbox.mark_sending_failed", "id", msg.ID, "error", err)
		return
	}

	if err := w.sender.Send(sendCtx, msg.Phone, msg.Body); err != nil {
		outboxFailedTotal.Inc()
		if mErr := w.store.MarkFailed(sendCtx, msg.ID, err.Error()); mErr != nil {
			w.logger.Error("outbox.mark_failed_failed", "id", msg.ID, "error", mErr)
		}
		w.logger.Error("outbox.send.failed", "id", msg.ID, "phone", msg.Phone, "error", err)
		return
	}

	outboxSentTotal.Inc()
	if err := w.store.MarkSent(sendCtx, msg.ID, time.Now()); err != nil {
		w.logger.Error("outbox.mark_sent_failed", "id", msg.ID, "error", err)
		return
	}
	w.logger.Info("outbox.send.ok", "id", msg.ID, "phone", msg.Phone)
}

// Shutdown stops the loop and waits for an in-flight drain to finish, up
// to the context deadline.
func (w *Worker) Shutdown(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.stop)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); w.wg.Wait() }()

	select {
	case <-ctx.Done():
		w.logger.Warn("shutdown interrupted by context")
	case <-done:
		w.logger.Info("outbox drained, shutdown complete")
	}
}
