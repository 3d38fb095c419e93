package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/store"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/xrpl"
)

type fakeReader struct {
	records []auction.RawTxRecord
	err     error
}

func (f *fakeReader) AccountTransactions(_ context.Context, _ string, _ int) ([]auction.RawTxRecord, error) {
	return f.records, f.err
}

func (f *fakeReader) LedgerCloseTime(_ context.Context) (int64, error) {
	return 0, nil
}

type fakeSettlement struct {
	placeBidParams *xrpl.PlaceBidParams
	placeBidResult *xrpl.PlaceBidResult
	placeBidErr    error
}

func (f *fakeSettlement) PlaceBid(_ context.Context, params xrpl.PlaceBidParams) (*xrpl.PlaceBidResult, error) {
	f.placeBidParams = &params
	return f.placeBidResult, f.placeBidErr
}

func (f *fakeSettlement) Finish(context.Context, string, uint32) (*xrpl.SubmitResult, error) {
	return &xrpl.SubmitResult{Hash: "FINISH"}, nil
}

func (f *fakeSettlement) Cancel(context.Context, string, uint32) (*xrpl.SubmitResult, error) {
	return &xrpl.SubmitResult{Hash: "CANCEL"}, nil
}

func (f *fakeSettlement) LookupSequence(context.Context, string, string, string) (uint32, error) {
	return 5, nil
}

func (f *fakeSettlement) PublishAuctionCreate(context.Context, *auction.AuctionCreatePayload) (*xrpl.SubmitResult, error) {
	return &xrpl.SubmitResult{Hash: "CREATE"}, nil
}

func (f *fakeSettlement) SubmitShipCommit(context.Context, *auction.ShipCommitPayload) (*xrpl.SubmitResult, error) {
	return &xrpl.SubmitResult{Hash: "SHIP"}, nil
}

func (f *fakeSettlement) SubmitReceivedConfirm(context.Context, *auction.ReceivedConfirmPayload) (*xrpl.SubmitResult, error) {
	return &xrpl.SubmitResult{Hash: "RECEIVED"}, nil
}

func memoRecord(t *testing.T, hash, eventType string, payload any) auction.RawTxRecord {
	t.Helper()
	memo, err := auction.BuildMemo(eventType, payload)
	require.NoError(t, err)
	tx, err := json.Marshal(map[string]any{
		"Memos": []map[string]any{{"Memo": memo}},
	})
	require.NoError(t, err)
	return auction.RawTxRecord{Tx: tx, Hash: hash}
}

func newTestService(t *testing.T, reader LedgerReader, settlement Settlement) (*AuctionService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	svc, err := NewAuctionService(reader, settlement, mem, mem, Options{}, zap.NewNop())
	require.NoError(t, err)
	return svc, mem
}

func TestFetchAuctionsReversesHistory(t *testing.T) {
	// Newest-first as account_tx returns: the bid arrives before its
	// create. Reversal into chronological order must fix precedence.
	reader := &fakeReader{records: []auction.RawTxRecord{
		memoRecord(t, "T2", auction.EventBid, &auction.BidPayload{
			Type: auction.EventBid, AuctionID: "auc_1", Bidder: "rBidder",
		}),
		memoRecord(t, "T1", auction.EventAuctionCreate, &auction.AuctionCreatePayload{
			Type: auction.EventAuctionCreate, AuctionID: "auc_1", Title: "Camera", EndTime: 100,
		}),
	}}
	svc, _ := newTestService(t, reader, &fakeSettlement{})

	auctions, err := svc.FetchAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	assert.Equal(t, "Camera", auctions[0].Create.Title)
	require.Len(t, auctions[0].Bids, 1)
	assert.Equal(t, "rBidder", auctions[0].Bids[0].Payload.Bidder)
}

func TestFetchAuctionsReadErrorPropagates(t *testing.T) {
	reader := &fakeReader{err: assert.AnError}
	svc, _ := newTestService(t, reader, &fakeSettlement{})

	_, err := svc.FetchAuctions(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPlaceBidRecordsDirectoryEntry(t *testing.T) {
	settlement := &fakeSettlement{
		placeBidResult: &xrpl.PlaceBidResult{
			EscrowTxHash:   "ESCROW_HASH",
			AnnounceTxHash: "ANNOUNCE_HASH",
			Bid: &auction.BidPayload{
				Type:        auction.EventBid,
				AuctionID:   "auc_1",
				Bidder:      "rBidder",
				BidDrops:    "2500000",
				EscrowOwner: "rBidder",
				EscrowSeq:   42,
			},
		},
	}
	svc, mem := newTestService(t, &fakeReader{}, settlement)

	result, err := svc.PlaceBid(context.Background(), "auc_1", PlaceBidRequest{
		SellerAddress: "rSeller",
		AmountXRP:     "2.5",
		EndTimeUnix:   1700003600,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(42), result.Bid.EscrowSeq)

	// Amount converted to drops before it reaches the protocol.
	require.NotNil(t, settlement.placeBidParams)
	assert.Equal(t, "2500000", settlement.placeBidParams.BidDrops)

	bids, err := mem.ByOwner(context.Background(), "rBidder")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, uint32(42), bids[0].OfferSequence)
	assert.Equal(t, "ESCROW_HASH", bids[0].TxHash)
	assert.Equal(t, "2.5", bids[0].AmountXRP)
}

func TestPlaceBidRejectsBadAmount(t *testing.T) {
	svc, mem := newTestService(t, &fakeReader{}, &fakeSettlement{})

	_, err := svc.PlaceBid(context.Background(), "auc_1", PlaceBidRequest{
		SellerAddress: "rSeller",
		AmountXRP:     "-1",
	})
	assert.Error(t, err)

	bids, err := mem.ByOwner(context.Background(), "rBidder")
	require.NoError(t, err)
	assert.Len(t, bids, 0)
}

func TestPlaceBidSettlementFailureSkipsDirectory(t *testing.T) {
	settlement := &fakeSettlement{placeBidErr: xrpl.ErrSequenceUnresolved}
	svc, mem := newTestService(t, &fakeReader{}, settlement)

	_, err := svc.PlaceBid(context.Background(), "auc_1", PlaceBidRequest{
		SellerAddress: "rSeller",
		AmountXRP:     "1",
		EndTimeUnix:   1700003600,
	})
	assert.ErrorIs(t, err, xrpl.ErrSequenceUnresolved)

	bids, err := mem.ByAuction(context.Background(), "auc_1")
	require.NoError(t, err)
	assert.Len(t, bids, 0)
}

func TestPublishAuctionCreateAttestsListing(t *testing.T) {
	svc, mem := newTestService(t, &fakeReader{}, &fakeSettlement{})
	require.NoError(t, mem.Create(context.Background(), &store.Listing{
		ID:     "lst_1",
		Status: store.ListingStatusActive,
	}))

	result, err := svc.PublishAuctionCreate(context.Background(), CreateAuctionRequest{
		ListingID: "lst_1",
		Payload: &auction.AuctionCreatePayload{
			Type:      auction.EventAuctionCreate,
			AuctionID: "auc_1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE", result.Hash)

	listing, err := mem.Get(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Equal(t, "CREATE", listing.AttestationTxHash)
}
