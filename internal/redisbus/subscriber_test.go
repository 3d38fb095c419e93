package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardStripsChannelPrefix(t *testing.T) {
	ch := make(chan *redis.Message, 1)
	out := make(chan *Message, 1)

	ch <- &redis.Message{Channel: ChannelPrefix + "auc_1", Payload: `{"type":"BID"}`}
	close(ch)

	err := forward(context.Background(), ch, out)
	require.NoError(t, err)

	msg := <-out
	assert.Equal(t, "auc_1", msg.AuctionID)
	assert.Equal(t, `{"type":"BID"}`, msg.Payload)
}

func TestForwardStopsOnClosedChannel(t *testing.T) {
	ch := make(chan *redis.Message)
	out := make(chan *Message, 1)

	done := make(chan error, 1)
	go func() {
		done <- forward(context.Background(), ch, out)
	}()

	close(ch)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not return after the subscription channel closed")
	}
}

func TestForwardStopsOnContextCancel(t *testing.T) {
	ch := make(chan *redis.Message)
	out := make(chan *Message, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := forward(ctx, ch, out)
	assert.ErrorIs(t, err, context.Canceled)
}
