package xrpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
)

// ErrNoSubmitter is the precondition failure reported before any
// network call when no signing session is available.
var ErrNoSubmitter = errors.New("no signing session: connect a wallet before submitting")

// ErrSequenceUnresolved reports that neither confirmation polling nor
// the ledger escrow scan could determine the escrow's sequence. The bid
// was not announced; the caller should retry shortly.
var ErrSequenceUnresolved = errors.New("could not resolve escrow sequence: transaction not validated yet and no matching escrow object found, retry shortly")

// PolicyViolationError is a ledger rejection recognizable as a
// policy/timing violation, enriched with a remediation hint.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("ledger rejected: %s. Check: 1) the auction has ended 2) the action is inside the cancel window 3) the escrow is not already cancelled", e.Reason)
}

// classifyRejection wraps tec/tem-class rejections as policy
// violations; everything else passes through unchanged.
func classifyRejection(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "tec") || strings.Contains(msg, "tem") {
		return &PolicyViolationError{Reason: msg}
	}
	return err
}

// Ledger is the read surface the settlement protocol needs from the
// ledger client.
type Ledger interface {
	Tx(ctx context.Context, hash string) (*TxResult, error)
	AccountEscrows(ctx context.Context, owner string) ([]EscrowObject, error)
}

// SettlementConfig sets the anchor rendezvous address and the escrow
// timing windows relative to auction end.
type SettlementConfig struct {
	AnchorAddress   string
	ReleaseDelaySec int64
	CancelGraceSec  int64
	// AnnounceDrops is the payment amount carried by announcement
	// transactions. 1 drop keeps the event log near-free.
	AnnounceDrops string
}

// DefaultSettlementConfig mirrors the production constants: release
// right at auction close, refunds open one minute later.
func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		AnchorAddress:   auction.DefaultAnchorAddress,
		ReleaseDelaySec: auction.DefaultReleaseDelaySec,
		CancelGraceSec:  auction.DefaultCancelGraceSec,
		AnnounceDrops:   "1",
	}
}

// Settlement drives the two-phase escrow protocol: lock funds for a
// bid, announce the bid once the lock is addressable, and later release
// or refund the lock.
type Settlement struct {
	ledger    Ledger
	submitter Submitter
	policy    RetryPolicy
	cfg       SettlementConfig
	logger    *zap.Logger

	now func() time.Time
}

// NewSettlement wires the protocol against a ledger reader and a
// sign-and-submit boundary.
func NewSettlement(ledger Ledger, submitter Submitter, policy RetryPolicy, cfg SettlementConfig, logger *zap.Logger) *Settlement {
	return &Settlement{
		ledger:    ledger,
		submitter: submitter,
		policy:    policy,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// PlaceBidParams identifies the auction and the lock to create for it.
type PlaceBidParams struct {
	AuctionID     string
	SellerAddress string
	BidDrops      string
	EndTimeUnix   int64
}

// PlaceBidResult reports the created lock, its resolved sequence, and
// the announcement.
type PlaceBidResult struct {
	EscrowTxHash   string
	AnnounceTxHash string
	Bid            *auction.BidPayload
}

// PlaceBid creates the bid escrow and announces it.
//
// The lock finishes after auction end plus the release delay and
// cancels after auction end plus the grace period. The sequence the
// ledger assigns to the escrow is not known with certainty at submit
// time, so it is resolved before the BID announcement goes out:
// first by polling the submitted transaction until the ledger exposes
// its Sequence, then by scanning the bidder's open escrow objects for
// one matching (destination, amount). If both fail the bid placement
// fails and nothing is announced: an announcement pointing at a lock
// that cannot be referenced would poison every downstream finish or
// cancel.
func (s *Settlement) PlaceBid(ctx context.Context, params PlaceBidParams) (*PlaceBidResult, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	bidder := s.submitter.Address()

	endRipple := auction.UnixToRippleSeconds(params.EndTimeUnix)
	create := EscrowCreateTx{
		TransactionType: "EscrowCreate",
		Account:         bidder,
		Destination:     params.SellerAddress,
		Amount:          params.BidDrops,
		FinishAfter:     endRipple + s.cfg.ReleaseDelaySec,
		CancelAfter:     endRipple + s.cfg.CancelGraceSec,
		Fee:             DefaultFeeDrops,
	}
	escrowResult, err := s.submitter.SignAndSubmit(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("escrow create failed: %w", err)
	}
	s.logger.Info("escrow created",
		zap.String("auction_id", params.AuctionID),
		zap.String("tx_hash", escrowResult.Hash),
		zap.String("amount_drops", params.BidDrops))

	seq, err := s.resolveSequence(ctx, escrowResult.Hash, bidder, params.SellerAddress, params.BidDrops)
	if err != nil {
		return nil, err
	}

	bid := &auction.BidPayload{
		Type:        auction.EventBid,
		AuctionID:   params.AuctionID,
		Bidder:      bidder,
		BidDrops:    params.BidDrops,
		EscrowOwner: bidder,
		EscrowSeq:   seq,
		Timestamp:   s.now().Unix(),
	}
	announce, err := s.paymentWithMemo(ctx, auction.EventBid, bid)
	if err != nil {
		return nil, fmt.Errorf("bid announcement failed: %w", err)
	}

	return &PlaceBidResult{
		EscrowTxHash:   escrowResult.Hash,
		AnnounceTxHash: announce.Hash,
		Bid:            bid,
	}, nil
}

// resolveSequence runs the two resolution strategies in order: bounded
// confirmation polling, then the open-escrow scan fallback.
func (s *Settlement) resolveSequence(ctx context.Context, txHash, owner, destination, amountDrops string) (uint32, error) {
	var seq uint32
	if txHash != "" {
		done, err := s.policy.Run(ctx, func() bool {
			res, err := s.ledger.Tx(ctx, txHash)
			if err != nil {
				// Not validated yet on the queried server; keep polling.
				return false
			}
			if res.Sequence == 0 {
				return false
			}
			seq = res.Sequence
			return true
		})
		if err != nil {
			return 0, err
		}
		if done {
			return seq, nil
		}
	}

	s.logger.Warn("confirmation polling exhausted, scanning open escrows",
		zap.String("tx_hash", txHash),
		zap.String("owner", owner))

	seq, err := s.scanSequence(ctx, owner, destination, amountDrops)
	if err != nil || seq == 0 {
		return 0, ErrSequenceUnresolved
	}
	return seq, nil
}

// scanSequence looks for an open escrow matching (destination, amount)
// among the owner's ledger objects and takes its originating
// transaction's sequence. Returns 0 when nothing matches.
func (s *Settlement) scanSequence(ctx context.Context, owner, destination, amountDrops string) (uint32, error) {
	escrows, err := s.ledger.AccountEscrows(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("escrow scan failed: %w", err)
	}
	for _, obj := range escrows {
		if obj.Destination != destination || obj.Amount != amountDrops {
			continue
		}
		if obj.PreviousTxnID == "" {
			continue
		}
		res, err := s.ledger.Tx(ctx, obj.PreviousTxnID)
		if err != nil {
			// Single lookup failure; keep scanning the rest.
			continue
		}
		if res.Sequence != 0 {
			return res.Sequence, nil
		}
	}
	return 0, nil
}

// LookupSequence re-runs the scan strategy on demand, for callers whose
// cached sequence turned out to be wrong.
func (s *Settlement) LookupSequence(ctx context.Context, owner, destination, amountDrops string) (uint32, error) {
	seq, err := s.scanSequence(ctx, owner, destination, amountDrops)
	if err != nil {
		return 0, err
	}
	if seq == 0 {
		return 0, ErrSequenceUnresolved
	}
	return seq, nil
}

// Finish releases the lock to the seller. Any party may submit it:
// release is a mechanical action once the release time has passed, and
// the timing rules are enforced by the ledger itself.
func (s *Settlement) Finish(ctx context.Context, owner string, sequence uint32) (*SubmitResult, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	tx := EscrowFinishTx{
		TransactionType: "EscrowFinish",
		Account:         s.submitter.Address(),
		Owner:           owner,
		OfferSequence:   sequence,
		Fee:             DefaultFeeDrops,
	}
	result, err := s.submitter.SignAndSubmit(ctx, tx)
	if err != nil {
		return nil, classifyRejection(err)
	}
	s.logger.Info("escrow finished", zap.String("owner", owner), zap.Uint32("sequence", sequence))
	return result, nil
}

// Cancel refunds the lock to the bidder, valid after the expiry time.
func (s *Settlement) Cancel(ctx context.Context, owner string, sequence uint32) (*SubmitResult, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	tx := EscrowCancelTx{
		TransactionType: "EscrowCancel",
		Account:         s.submitter.Address(),
		Owner:           owner,
		OfferSequence:   sequence,
		Fee:             DefaultFeeDrops,
	}
	result, err := s.submitter.SignAndSubmit(ctx, tx)
	if err != nil {
		return nil, classifyRejection(err)
	}
	s.logger.Info("escrow cancelled", zap.String("owner", owner), zap.Uint32("sequence", sequence))
	return result, nil
}

// PublishAuctionCreate announces a new auction on the event log.
func (s *Settlement) PublishAuctionCreate(ctx context.Context, payload *auction.AuctionCreatePayload) (*SubmitResult, error) {
	return s.paymentWithMemo(ctx, auction.EventAuctionCreate, payload)
}

// SubmitShipCommit announces the seller's shipping commitment.
func (s *Settlement) SubmitShipCommit(ctx context.Context, payload *auction.ShipCommitPayload) (*SubmitResult, error) {
	return s.paymentWithMemo(ctx, auction.EventShipCommit, payload)
}

// SubmitReceivedConfirm announces the buyer's receipt confirmation.
func (s *Settlement) SubmitReceivedConfirm(ctx context.Context, payload *auction.ReceivedConfirmPayload) (*SubmitResult, error) {
	return s.paymentWithMemo(ctx, auction.EventReceivedConfirm, payload)
}

// paymentWithMemo writes one event to the log: a minimal-value payment
// to the anchor address carrying the memo-encoded payload.
func (s *Settlement) paymentWithMemo(ctx context.Context, eventType string, payload any) (*SubmitResult, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}
	memo, err := auction.BuildMemo(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s memo: %w", eventType, err)
	}
	tx := PaymentWithMemoTx{
		TransactionType: "Payment",
		Account:         s.submitter.Address(),
		Destination:     s.cfg.AnchorAddress,
		Amount:          s.cfg.AnnounceDrops,
		Memos:           []auction.MemoWrapper{{Memo: memo}},
		Fee:             DefaultFeeDrops,
	}
	result, err := s.submitter.SignAndSubmit(ctx, tx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event announced",
		zap.String("event_type", eventType),
		zap.String("tx_hash", result.Hash))
	return result, nil
}
