package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix is the Pub/Sub channel namespace for live auction
// events: "auction_events:{auctionID}".
const ChannelPrefix = "auction_events:"

// Publisher pushes auction events to Redis Pub/Sub, where the broadcast
// service picks them up for WebSocket fanout.
type Publisher struct {
	client *redis.Client
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr, password string, db int) (*Publisher, error) {
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

	return &Publisher{client: rdb}, nil
}

// PublishEvent publishes an auction event on the auction's channel.
func (p *Publisher) PublishEvent(ctx context.Context, auctionID string, event any) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.client.Publish(ctx, ChannelPrefix+auctionID, eventJSON).Err()
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
