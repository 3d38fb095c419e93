package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing listing.
var ErrNotFound = errors.New("listing not found")

// Listing status constants
const (
	ListingStatusActive    = "active"
	ListingStatusEnded     = "ended"
	ListingStatusCancelled = "cancelled"
)

// Listing is an off-chain directory entry for an auction. The ledger
// stays the source of truth for bids and settlement; the listing exists
// so browsing does not require a full chain scan.
type Listing struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url,omitempty"`
	SellerAddress string `json:"seller_address"`
	// AttestationTxHash is the on-chain AUCTION_CREATE announcement, once published.
	AttestationTxHash string    `json:"attestation_tx_hash,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	EndTime           time.Time `json:"end_time"`
	MinBidXRP         string    `json:"min_bid_xrp,omitempty"`
	Status            string    `json:"status"`
}

// ListingUpdate is the mutable subset of a listing.
type ListingUpdate struct {
	AttestationTxHash string
	Status            string
}

// BidRecord tracks an escrow created for an auction so "my bids" can be
// listed and cancelled without rescanning the chain.
type BidRecord struct {
	AuctionID     string    `json:"auction_id"`
	Owner         string    `json:"owner"`
	OfferSequence uint32    `json:"offer_sequence"`
	AmountXRP     string    `json:"amount_xrp"`
	TxHash        string    `json:"tx_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// Listings is the listing directory repository.
type Listings interface {
	Create(ctx context.Context, listing *Listing) error
	Get(ctx context.Context, id string) (*Listing, error)
	// List returns all listings, newest first.
	List(ctx context.Context) ([]*Listing, error)
	Update(ctx context.Context, id string, update ListingUpdate) (*Listing, error)
}

// Bids is the bid directory repository.
type Bids interface {
	Add(ctx context.Context, bid *BidRecord) error
	ByOwner(ctx context.Context, owner string) ([]*BidRecord, error)
	ByAuction(ctx context.Context, auctionID string) ([]*BidRecord, error)
}
