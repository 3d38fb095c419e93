package redisbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one Pub/Sub message routed to an auction channel.
type Message struct {
	AuctionID string
	Payload   string // raw JSON event
}

// Subscriber wraps Redis Pub/Sub for the broadcast service.
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// NewSubscriber connects to Redis and verifies the connection.
func NewSubscriber(addr, password string, db int) (*Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Subscriber{client: rdb}, nil
}

// SubscribeAll subscribes to every auction event channel by pattern.
func (s *Subscriber) SubscribeAll(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, ChannelPrefix+"*")
	return nil
}

// Listen forwards messages to the provided channel until the context is
// cancelled or the subscription closes. Blocking; run in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, out chan<- *Message) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed to any channel")
	}
	return forward(ctx, s.pubsub.Channel(), out)
}

func forward(ctx context.Context, ch <-chan *redis.Message, out chan<- *Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			// A closed channel means the subscription was shut down;
			// that is a normal exit, not an error.
			if !ok || msg == nil {
				return nil
			}
			out <- &Message{
				AuctionID: strings.TrimPrefix(msg.Channel, ChannelPrefix),
				Payload:   msg.Payload,
			}
		}
	}
}

// Close closes the subscription and the Redis connection.
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
	return s.client.Close()
}
