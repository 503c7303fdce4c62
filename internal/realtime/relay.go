package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"internportal/internal/domain/event"
)

const DefaultChannel = "internportal:events"

// RedisRelay fans events out across API instances through Redis pub/sub.
// Every instance, including the sender, receives the event from its own
// subscription. While Redis is failing the breaker opens and events are
// delivered to local sessions only.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	local   *Hub
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  Logger
}

func NewRedisRelay(client redis.UniversalClient, channel string, local *Hub, logger Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "realtime-relay",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		timeout: 500 * time.Millisecond,
		logger:  logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return nil, r.client.Publish(pubCtx, r.channel, data).Err()
	})
	if err != nil {
		r.logger.Warn("relay publish failed, delivering locally", "event", ev.Name, "error", err)
		return r.local.Publish(ctx, ev)
	}
	return nil
}

// Run forwards events from the shared channel to local sessions until ctx
// is done. go-redis re-subscribes on its own after connection loss.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var ev event.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Warn("relay dropped malformed event", "error", err)
				continue
			}
			_ = r.local.Publish(ctx, ev)
		}
	}
}

func (r *RedisRelay) BreakerState() string {
	return r.breaker.State().String()
}
