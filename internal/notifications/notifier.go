package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes user-directed events into Redis channels so they reach
// the hub of whichever process the user is connected to. All methods are
// nil-receiver and nil-client safe: without Redis the caller falls back to
// broadcasting on its local hub.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user's notifications.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// PublishUser sends a named event to a user's channel in hub wire shape.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event string, data any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Event{Name: event, Data: data})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, UserChannel(userID), string(payload)).Err()
}

// StartUserSubscriber subscribes to pattern `notify:user:*` and calls
// onMessage with the parsed user id and raw payload for each message.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage func(userID uint, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notify:user:*")
	ch := sub.Channel()

	go func() {
		for msg := range ch {
			var userID uint
			if _, err := fmt.Sscanf(msg.Channel, "notify:user:%d", &userID); err != nil {
				continue
			}
			onMessage(userID, msg.Payload)
		}
	}()

	return nil
}
