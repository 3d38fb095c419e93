package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
)

// PostgresClient wraps the archival database connection.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens and verifies the database connection.
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// InitSchema creates the archival tables. Everything here is a derived
// copy of the on-chain event log; the ledger stays the source of truth.
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS auction_events (
		event_id VARCHAR(255) PRIMARY KEY,
		auction_id VARCHAR(255) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		observed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS auctions (
		auction_id VARCHAR(255) PRIMARY KEY,
		seller VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		desc_hash VARCHAR(255),
		start_time BIGINT NOT NULL,
		end_time BIGINT NOT NULL,
		currency VARCHAR(50),
		min_increment_drops VARCHAR(50),
		reserve_drops VARCHAR(50),
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bids (
		auction_id VARCHAR(255) NOT NULL,
		bidder VARCHAR(255) NOT NULL,
		bid_drops VARCHAR(50) NOT NULL,
		escrow_owner VARCHAR(255) NOT NULL,
		escrow_seq BIGINT NOT NULL,
		observed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (escrow_owner, escrow_seq)
	);

	CREATE INDEX IF NOT EXISTS idx_auction_events_auction_id ON auction_events(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bids_auction_id ON bids(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertEvent archives one announced event. Replays are at-least-once,
// so the insert is idempotent on event id.
func (c *PostgresClient) InsertEvent(ctx context.Context, eventID, auctionID, eventType string, payload json.RawMessage, observedAt time.Time) error {
	query := `
		INSERT INTO auction_events (event_id, auction_id, event_type, payload, observed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, query, eventID, auctionID, eventType, []byte(payload), observedAt); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpsertAuction mirrors an AUCTION_CREATE event: the latest create for
// an auction id wins, matching the aggregator's correction semantics.
func (c *PostgresClient) UpsertAuction(ctx context.Context, p *auction.AuctionCreatePayload) error {
	query := `
		INSERT INTO auctions (auction_id, seller, title, desc_hash, start_time, end_time, currency, min_increment_drops, reserve_drops)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (auction_id) DO UPDATE SET
			seller = EXCLUDED.seller,
			title = EXCLUDED.title,
			desc_hash = EXCLUDED.desc_hash,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			currency = EXCLUDED.currency,
			min_increment_drops = EXCLUDED.min_increment_drops,
			reserve_drops = EXCLUDED.reserve_drops,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := c.db.ExecContext(ctx, query,
		p.AuctionID, p.Seller, p.Title, p.DescHash,
		p.StartTime, p.EndTime, p.Currency, p.MinIncrementDrops, p.ReserveDrops)
	if err != nil {
		return fmt.Errorf("failed to upsert auction: %w", err)
	}
	return nil
}

// InsertBid mirrors a BID event, keyed by the escrow lock address so
// duplicate announcements collapse.
func (c *PostgresClient) InsertBid(ctx context.Context, p *auction.BidPayload, observedAt time.Time) error {
	query := `
		INSERT INTO bids (auction_id, bidder, bid_drops, escrow_owner, escrow_seq, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (escrow_owner, escrow_seq) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, query,
		p.AuctionID, p.Bidder, p.BidDrops, p.EscrowOwner, p.EscrowSeq, observedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBidHistory returns the archived bids for an auction, newest first.
func (c *PostgresClient) GetBidHistory(ctx context.Context, auctionID string, limit int) ([]*auction.BidPayload, error) {
	query := `
		SELECT auction_id, bidder, bid_drops, escrow_owner, escrow_seq
		FROM bids
		WHERE auction_id = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`

	rows, err := c.db.QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*auction.BidPayload
	for rows.Next() {
		bid := &auction.BidPayload{Type: auction.EventBid}
		err := rows.Scan(
			&bid.AuctionID,
			&bid.Bidder,
			&bid.BidDrops,
			&bid.EscrowOwner,
			&bid.EscrowSeq,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// Close closes the database connection.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
