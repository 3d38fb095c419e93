package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/redisbus"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/store"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/xrpl"
)

// StreamName is the JetStream stream holding announced auction events
// for archival.
const StreamName = "AUCTION_EVENTS"

// StreamSubjects is the subject space of the archival stream.
const StreamSubjects = "auction.events.*"

// LedgerReader is the read surface consumed from the ledger boundary.
type LedgerReader interface {
	AccountTransactions(ctx context.Context, account string, limit int) ([]auction.RawTxRecord, error)
	LedgerCloseTime(ctx context.Context) (int64, error)
}

// Settlement is the escrow protocol surface the service drives.
type Settlement interface {
	PlaceBid(ctx context.Context, params xrpl.PlaceBidParams) (*xrpl.PlaceBidResult, error)
	Finish(ctx context.Context, owner string, sequence uint32) (*xrpl.SubmitResult, error)
	Cancel(ctx context.Context, owner string, sequence uint32) (*xrpl.SubmitResult, error)
	LookupSequence(ctx context.Context, owner, destination, amountDrops string) (uint32, error)
	PublishAuctionCreate(ctx context.Context, payload *auction.AuctionCreatePayload) (*xrpl.SubmitResult, error)
	SubmitShipCommit(ctx context.Context, payload *auction.ShipCommitPayload) (*xrpl.SubmitResult, error)
	SubmitReceivedConfirm(ctx context.Context, payload *auction.ReceivedConfirmPayload) (*xrpl.SubmitResult, error)
}

// AuctionService ties the read pipeline (ledger scan -> parse ->
// aggregate) to the write path (escrow settlement + announcements) and
// fans successful events out to Redis Pub/Sub and NATS JetStream.
type AuctionService struct {
	reader     LedgerReader
	settlement Settlement
	listings   store.Listings
	bids       store.Bids
	publisher  *redisbus.Publisher
	js         jetstream.JetStream
	logger     *zap.Logger

	anchorAddress string
	txLimit       int
}

// Options carries the optional fanout connections and overrides.
// Either connection may be nil in tests or reduced deployments.
type Options struct {
	Publisher *redisbus.Publisher
	NatsConn  *nats.Conn

	// AnchorAddress overrides the account whose history is scanned.
	AnchorAddress string
	// TxLimit caps how many transactions one rebuild reads.
	TxLimit int
}

// NewAuctionService wires the service and ensures the archival stream
// exists when a NATS connection is given.
func NewAuctionService(
	reader LedgerReader,
	settlement Settlement,
	listings store.Listings,
	bids store.Bids,
	opts Options,
	logger *zap.Logger,
) (*AuctionService, error) {
	s := &AuctionService{
		reader:        reader,
		settlement:    settlement,
		listings:      listings,
		bids:          bids,
		publisher:     opts.Publisher,
		logger:        logger,
		anchorAddress: auction.DefaultAnchorAddress,
		txLimit:       200,
	}
	if opts.AnchorAddress != "" {
		s.anchorAddress = opts.AnchorAddress
	}
	if opts.TxLimit > 0 {
		s.txLimit = opts.TxLimit
	}

	if opts.NatsConn != nil {
		js, err := jetstream.New(opts.NatsConn)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        StreamName,
			Description: "Stream for auction event archival",
			Subjects:    []string{StreamSubjects},
			Storage:     jetstream.FileStorage,
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      24 * time.Hour,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create/update stream: %w", err)
		}
		s.js = js
	}

	return s, nil
}

// FetchAuctions rebuilds the auction list from the chain. The ledger
// returns history newest-first; the fold wants chronological order, so
// the records are reversed before parsing.
func (s *AuctionService) FetchAuctions(ctx context.Context) ([]*auction.Aggregate, error) {
	records, err := s.reader.AccountTransactions(ctx, s.anchorAddress, s.txLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch auction index history: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	events := auction.ParseEvents(records)
	return auction.ListAuctions(auction.BuildAuctionMap(events)), nil
}

// LedgerCloseTime exposes the validated close time (Ripple epoch
// seconds) for release-window display.
func (s *AuctionService) LedgerCloseTime(ctx context.Context) (int64, error) {
	return s.reader.LedgerCloseTime(ctx)
}

// PlaceBidRequest is a caller's intent to bid on an auction.
type PlaceBidRequest struct {
	SellerAddress string `json:"seller_address"`
	AmountXRP     string `json:"amount_xrp"`
	EndTimeUnix   int64  `json:"end_time_unix"`
}

// PlaceBid locks the bid amount in escrow, records the bid in the
// directory, and fans the announced event out to live and archival
// consumers.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID string, req PlaceBidRequest) (*xrpl.PlaceBidResult, error) {
	drops, err := auction.XRPToDrops(req.AmountXRP)
	if err != nil {
		return nil, err
	}

	result, err := s.settlement.PlaceBid(ctx, xrpl.PlaceBidParams{
		AuctionID:     auctionID,
		SellerAddress: req.SellerAddress,
		BidDrops:      drops,
		EndTimeUnix:   req.EndTimeUnix,
	})
	if err != nil {
		return nil, err
	}

	if err := s.bids.Add(ctx, &store.BidRecord{
		AuctionID:     auctionID,
		Owner:         result.Bid.EscrowOwner,
		OfferSequence: result.Bid.EscrowSeq,
		AmountXRP:     req.AmountXRP,
		TxHash:        result.EscrowTxHash,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		// The escrow and announcement are already on the ledger; a
		// directory failure must not fail the bid.
		s.logger.Warn("failed to record bid in directory", zap.Error(err))
	}

	s.fanout(auctionID, result.Bid)
	return result, nil
}

// CreateAuctionRequest carries the on-chain announcement payload for a
// listing that already exists in the directory.
type CreateAuctionRequest struct {
	ListingID string
	Payload   *auction.AuctionCreatePayload
}

// PublishAuctionCreate announces an auction on the event log and, on
// success, attests the directory listing with the announcement hash.
func (s *AuctionService) PublishAuctionCreate(ctx context.Context, req CreateAuctionRequest) (*xrpl.SubmitResult, error) {
	result, err := s.settlement.PublishAuctionCreate(ctx, req.Payload)
	if err != nil {
		return nil, err
	}

	if req.ListingID != "" {
		if _, err := s.listings.Update(ctx, req.ListingID, store.ListingUpdate{
			AttestationTxHash: result.Hash,
		}); err != nil {
			s.logger.Warn("failed to attest listing", zap.String("listing_id", req.ListingID), zap.Error(err))
		}
	}

	s.fanout(req.Payload.AuctionID, req.Payload)
	return result, nil
}

// SubmitShipCommit announces the seller's shipping commitment.
func (s *AuctionService) SubmitShipCommit(ctx context.Context, payload *auction.ShipCommitPayload) (*xrpl.SubmitResult, error) {
	result, err := s.settlement.SubmitShipCommit(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.fanout(payload.AuctionID, payload)
	return result, nil
}

// SubmitReceivedConfirm announces the buyer's receipt confirmation.
func (s *AuctionService) SubmitReceivedConfirm(ctx context.Context, payload *auction.ReceivedConfirmPayload) (*xrpl.SubmitResult, error) {
	result, err := s.settlement.SubmitReceivedConfirm(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.fanout(payload.AuctionID, payload)
	return result, nil
}

// FinishEscrow releases a bid's escrow to the seller.
func (s *AuctionService) FinishEscrow(ctx context.Context, owner string, sequence uint32) (*xrpl.SubmitResult, error) {
	return s.settlement.Finish(ctx, owner, sequence)
}

// CancelEscrow refunds a bid's escrow to its owner.
func (s *AuctionService) CancelEscrow(ctx context.Context, owner string, sequence uint32) (*xrpl.SubmitResult, error) {
	return s.settlement.Cancel(ctx, owner, sequence)
}

// LookupSequence re-resolves an escrow sequence from the ledger.
func (s *AuctionService) LookupSequence(ctx context.Context, owner, destination, amountDrops string) (uint32, error) {
	return s.settlement.LookupSequence(ctx, owner, destination, amountDrops)
}

// ArchivedEvent is the envelope published to the archival stream.
type ArchivedEvent struct {
	EventID   string    `json:"event_id"`
	AuctionID string    `json:"auction_id"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// fanout pushes an announced event to Redis Pub/Sub (live broadcast)
// and NATS JetStream (archival). Both are best-effort: the ledger
// already holds the durable copy.
func (s *AuctionService) fanout(auctionID string, payload any) {
	if s.publisher != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.publisher.PublishEvent(ctx, auctionID, payload); err != nil {
				s.logger.Warn("failed to publish event to Redis", zap.Error(err))
			}
		}()
	}

	if s.js != nil {
		go func() {
			envelope := ArchivedEvent{
				EventID:   uuid.New().String(),
				AuctionID: auctionID,
				Payload:   payload,
				Timestamp: time.Now().UTC(),
			}
			data, err := json.Marshal(envelope)
			if err != nil {
				s.logger.Warn("failed to marshal archival event", zap.Error(err))
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			subject := fmt.Sprintf("auction.events.%s", auctionID)
			ack, err := s.js.Publish(ctx, subject, data)
			if err != nil {
				s.logger.Warn("failed to publish to JetStream", zap.Error(err))
				return
			}
			s.logger.Debug("archived event published",
				zap.String("subject", subject),
				zap.Uint64("seq", ack.Sequence))
		}()
	}
}
