package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of the Listings and Bids
// repositories, used in tests and single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]*Listing
	bids     []*BidRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[string]*Listing),
	}
}

func (s *MemoryStore) Create(_ context.Context, listing *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *listing
	s.listings[listing.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *listing
	return &clone, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		clone := *l
		list = append(list, &clone)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, update ListingUpdate) (*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.AttestationTxHash != "" {
		listing.AttestationTxHash = update.AttestationTxHash
	}
	if update.Status != "" {
		listing.Status = update.Status
	}
	clone := *listing
	return &clone, nil
}

func (s *MemoryStore) Add(_ context.Context, bid *BidRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *bid
	s.bids = append(s.bids, &clone)
	return nil
}

func (s *MemoryStore) ByOwner(_ context.Context, owner string) ([]*BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BidRecord
	for _, b := range s.bids {
		if b.Owner == owner {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemoryStore) ByAuction(_ context.Context, auctionID string) ([]*BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*BidRecord
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}
