package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	listingKeyPrefix  = "listing:"
	listingIndexKey   = "listings:index"
	bidsOwnerPrefix   = "bids:owner:"
	bidsAuctionPrefix = "bids:auction:"
)

// RedisStore implements the Listings and Bids repositories on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

// Create stores the listing and indexes it by creation time.
func (s *RedisStore) Create(ctx context.Context, listing *Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, listingKeyPrefix+listing.ID, data, 0)
	pipe.ZAdd(ctx, listingIndexKey, redis.Z{
		Score:  float64(listing.CreatedAt.UnixNano()),
		Member: listing.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store listing: %w", err)
	}
	return nil
}

// Get retrieves one listing by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Listing, error) {
	data, err := s.client.Get(ctx, listingKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	var listing Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	return &listing, nil
}

// List returns all listings, newest first.
func (s *RedisStore) List(ctx context.Context) ([]*Listing, error) {
	ids, err := s.client.ZRevRange(ctx, listingIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	listings := make([]*Listing, 0, len(ids))
	for _, id := range ids {
		listing, err := s.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Update patches the mutable fields of a listing.
func (s *RedisStore) Update(ctx context.Context, id string, update ListingUpdate) (*Listing, error) {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.AttestationTxHash != "" {
		listing.AttestationTxHash = update.AttestationTxHash
	}
	if update.Status != "" {
		listing.Status = update.Status
	}

	data, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := s.client.Set(ctx, listingKeyPrefix+id, data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return listing, nil
}

// Add records a bid under both its owner and auction indices.
func (s *RedisStore) Add(ctx context.Context, bid *BidRecord) error {
	data, err := json.Marshal(bid)
	if err != nil {
		return fmt.Errorf("failed to marshal bid: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, bidsOwnerPrefix+bid.Owner, data)
	pipe.RPush(ctx, bidsAuctionPrefix+bid.AuctionID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store bid: %w", err)
	}
	return nil
}

// ByOwner returns all bids recorded for an owner address.
func (s *RedisStore) ByOwner(ctx context.Context, owner string) ([]*BidRecord, error) {
	return s.bidRange(ctx, bidsOwnerPrefix+owner)
}

// ByAuction returns all bids recorded for an auction.
func (s *RedisStore) ByAuction(ctx context.Context, auctionID string) ([]*BidRecord, error) {
	return s.bidRange(ctx, bidsAuctionPrefix+auctionID)
}

func (s *RedisStore) bidRange(ctx context.Context, key string) ([]*BidRecord, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	bids := make([]*BidRecord, 0, len(values))
	for _, v := range values {
		var bid BidRecord
		if err := json.Unmarshal([]byte(v), &bid); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bid: %w", err)
		}
		bids = append(bids, &bid)
	}
	return bids, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
