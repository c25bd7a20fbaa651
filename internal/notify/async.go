package notify

import (
	"context"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
)

// DefaultQueueSize is the number of pending messages Async holds.
const DefaultQueueSize = 64

// Async queues messages for a background worker so callers on the polling
// path never wait on delivery. Messages are dropped when the queue is full.
type Async struct {
	next  Notifier
	log   logger.Logger
	queue chan string
}

// NewAsync wraps next. Run must be started for anything to be delivered.
func NewAsync(next Notifier, size int, log logger.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Async{next: next, log: log, queue: make(chan string, size)}
}

// Notify enqueues msg. It never blocks.
func (a *Async) Notify(_ context.Context, msg string) error {
	select {
	case a.queue <- msg:
		return nil
	default:
		a.log.Warn("notification queue full, dropping %q", msg)
		return errors.New(errors.ErrAgent, "notification queue full", "")
	}
}

// Run delivers queued messages until ctx is canceled.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.queue:
			if err := a.next.Notify(ctx, msg); err != nil {
				a.log.Warn("notification failed: %s", errors.Brief(err))
			}
		}
	}
}
