package dispatch

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const notifyChannel = "uniqbot:jobs:done"

// Notification announces a terminal job transition to interested processes.
type Notification struct {
	JobID         string   `json:"job_id"`
	Status        string   `json:"status"`
	OutputPaths   []string `json:"output_paths,omitempty"`
	ErrorCategory string   `json:"error_category,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// Notifier publishes terminal transitions. Best-effort: a dropped
// notification is recovered by clients polling job status.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

// RedisNotifier publishes notifications on a redis pub/sub channel.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier wraps an existing redis client.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Publish broadcasts one notification.
func (n *RedisNotifier) Publish(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, notifyChannel, payload).Err()
}

// Listen subscribes to terminal-transition notifications and invokes handle
// for each one until ctx is done. Malformed payloads are logged and skipped.
func Listen(ctx context.Context, rdb *redis.Client, logger zerolog.Logger, handle func(Notification)) {
	sub := rdb.Subscribe(ctx, notifyChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var note Notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				logger.Warn().Err(err).Msg("dispatch: bad notification payload")
				continue
			}
			handle(note)
		}
	}
}
