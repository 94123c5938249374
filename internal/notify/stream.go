package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ids"
)

const streamMaxLen = 100000

// StreamNotifier enqueues messages onto a Redis stream for the worker.
type StreamNotifier struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

func NewStreamNotifier(client *redis.Client, stream string) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, now: time.Now}
}

func (n *StreamNotifier) Notify(ctx context.Context, msg Message) error {
	if n.client == nil {
		return nil
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = ids.Sortable()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = n.now().UTC()
	}

	_, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: Encode(msg),
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s notification: %w", msg.Kind, err)
	}
	return nil
}

// Encode flattens a message into stream fields.
func Encode(msg Message) map[string]any {
	return map[string]any{
		"id":        msg.ID,
		"kind":      string(msg.Kind),
		"to":        msg.To,
		"subject":   msg.Subject,
		"body":      msg.Body,
		"createdAt": msg.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Decode is the inverse of Encode.
func Decode(values map[string]any) (Message, error) {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	msg := Message{
		ID:      str("id"),
		Kind:    Kind(str("kind")),
		To:      str("to"),
		Subject: str("subject"),
		Body:    str("body"),
	}
	if created := str("createdAt"); created != "" {
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return Message{}, fmt.Errorf("decode createdAt: %w", err)
		}
		msg.CreatedAt = ts
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}
