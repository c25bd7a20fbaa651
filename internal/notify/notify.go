// Package notify delivers host status notifications. The core only ever
// hands a Notifier a formatted line of text.
package notify

import (
	"context"
	stderrors "errors"

	"github.com/rileyhilliard/nekowatch/internal/logger"
)

// Notifier delivers a single message.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg string) error

func (f Func) Notify(ctx context.Context, msg string) error { return f(ctx, msg) }

// Log writes notifications to a logger. It is the sink used when no other
// channel is configured.
type Log struct {
	log logger.Logger
}

func NewLog(log logger.Logger) *Log {
	if log == nil {
		log = logger.Noop()
	}
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, msg string) error {
	l.log.Info("%s", msg)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
