package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreListings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"lst_a", "lst_b", "lst_c"} {
		err := s.Create(ctx, &Listing{
			ID:            id,
			Title:         "Listing " + id,
			SellerAddress: "rSeller",
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
			EndTime:       base.Add(24 * time.Hour),
			Status:        ListingStatusActive,
		})
		require.NoError(t, err)
	}

	got, err := s.Get(ctx, "lst_b")
	require.NoError(t, err)
	assert.Equal(t, "Listing lst_b", got.Title)

	_, err = s.Get(ctx, "lst_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Newest first.
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "lst_c", list[0].ID)
	assert.Equal(t, "lst_a", list[2].ID)

	updated, err := s.Update(ctx, "lst_a", ListingUpdate{
		AttestationTxHash: "TXHASH",
		Status:            ListingStatusEnded,
	})
	require.NoError(t, err)
	assert.Equal(t, "TXHASH", updated.AttestationTxHash)
	assert.Equal(t, ListingStatusEnded, updated.Status)

	// Partial update leaves the other field alone.
	updated, err = s.Update(ctx, "lst_a", ListingUpdate{Status: ListingStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, "TXHASH", updated.AttestationTxHash)
	assert.Equal(t, ListingStatusCancelled, updated.Status)

	_, err = s.Update(ctx, "lst_missing", ListingUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreBids(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Add(ctx, &BidRecord{AuctionID: "auc_1", Owner: "rAlice", OfferSequence: 1}))
	require.NoError(t, s.Add(ctx, &BidRecord{AuctionID: "auc_1", Owner: "rBob", OfferSequence: 2}))
	require.NoError(t, s.Add(ctx, &BidRecord{AuctionID: "auc_2", Owner: "rAlice", OfferSequence: 3}))

	byOwner, err := s.ByOwner(ctx, "rAlice")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)
	assert.Equal(t, uint32(1), byOwner[0].OfferSequence)
	assert.Equal(t, uint32(3), byOwner[1].OfferSequence)

	byAuction, err := s.ByAuction(ctx, "auc_1")
	require.NoError(t, err)
	require.Len(t, byAuction, 2)

	empty, err := s.ByOwner(ctx, "rNobody")
	require.NoError(t, err)
	assert.Len(t, empty, 0)
}
