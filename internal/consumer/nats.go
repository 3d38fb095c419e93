package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/database"
)

// NATSConsumer consumes announced auction events and archives them to
// the database.
type NATSConsumer struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	db     *database.PostgresClient
	logger *zap.Logger
}

// NewNATSConsumer connects to NATS.
func NewNATSConsumer(natsURL string, db *database.PostgresClient, logger *zap.Logger) (*NATSConsumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSConsumer{
		conn:   conn,
		db:     db,
		logger: logger,
	}, nil
}

// archivedEvent mirrors the envelope the api-gateway publishes.
type archivedEvent struct {
	EventID   string          `json:"event_id"`
	AuctionID string          `json:"auction_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Start subscribes to the auction event subjects and blocks until the
// context is cancelled.
func (c *NATSConsumer) Start(ctx context.Context) error {
	sub, err := c.conn.Subscribe("auction.events.*", func(msg *nats.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.sub = sub

	<-ctx.Done()
	return ctx.Err()
}

func (c *NATSConsumer) handleMessage(ctx context.Context, msg *nats.Msg) {
	var envelope archivedEvent
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logger.Warn("failed to parse archival message", zap.Error(err))
		return
	}

	payload, eventType := auction.DecodePayload(envelope.Payload)
	if payload == nil {
		c.logger.Warn("unrecognized event payload, skipping",
			zap.String("event_id", envelope.EventID))
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.db.InsertEvent(dbCtx, envelope.EventID, envelope.AuctionID, eventType, envelope.Payload, envelope.Timestamp); err != nil {
		c.logger.Error("failed to archive event", zap.Error(err))
		return
	}

	switch p := payload.(type) {
	case *auction.AuctionCreatePayload:
		if err := c.db.UpsertAuction(dbCtx, p); err != nil {
			c.logger.Error("failed to upsert auction", zap.Error(err))
		}
	case *auction.BidPayload:
		if err := c.db.InsertBid(dbCtx, p, envelope.Timestamp); err != nil {
			c.logger.Error("failed to insert bid", zap.Error(err))
		}
	}

	c.logger.Debug("event archived",
		zap.String("event_id", envelope.EventID),
		zap.String("event_type", eventType),
		zap.String("auction_id", envelope.AuctionID))
}

// Close drains the subscription and closes the connection.
func (c *NATSConsumer) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.conn.Close()
}
