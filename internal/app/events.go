package app

import (
	"context"
	"time"

	"internportal/internal/common"
	"internportal/internal/domain/event"
)

type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func orNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

func orNopPublisher(publisher event.Publisher) event.Publisher {
	if publisher == nil {
		return event.NopPublisher{}
	}
	return publisher
}

// notify is fire-and-forget: a failed publish never fails the request.
func notify(ctx context.Context, publisher event.Publisher, logger Logger, ev event.Event) {
	ev.At = time.Now().UTC()
	if err := publisher.Publish(ctx, ev); err != nil {
		logger.Warn("event publish failed", "event", ev.Name, "error", err)
	}
}

func audience(ids ...common.UUID) []common.UUID {
	out := make([]common.UUID, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
