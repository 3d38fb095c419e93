package xrpl

import (
	"context"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
)

// DefaultFeeDrops is the flat fee attached to every submitted transaction.
const DefaultFeeDrops = "12"

// TxDescriptor is the closed set of transaction shapes this system
// submits. Keeping the set closed catches field-shape mistakes at
// compile time instead of at ledger rejection time.
type TxDescriptor interface {
	isTx()
}

// EscrowCreateTx locks Amount drops from Account until FinishAfter,
// refundable after CancelAfter. Times are Ripple epoch seconds.
type EscrowCreateTx struct {
	TransactionType string                `json:"TransactionType"`
	Account         string                `json:"Account"`
	Destination     string                `json:"Destination"`
	Amount          string                `json:"Amount"`
	FinishAfter     int64                 `json:"FinishAfter"`
	CancelAfter     int64                 `json:"CancelAfter,omitempty"`
	Memos           []auction.MemoWrapper `json:"Memos,omitempty"`
	Fee             string                `json:"Fee"`
}

// EscrowFinishTx releases the lock addressed by (Owner, OfferSequence)
// to its destination. Any account may submit it.
type EscrowFinishTx struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Owner           string `json:"Owner"`
	OfferSequence   uint32 `json:"OfferSequence"`
	Fee             string `json:"Fee"`
}

// EscrowCancelTx refunds the lock addressed by (Owner, OfferSequence)
// back to its owner.
type EscrowCancelTx struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Owner           string `json:"Owner"`
	OfferSequence   uint32 `json:"OfferSequence"`
	Fee             string `json:"Fee"`
}

// PaymentWithMemoTx is a minimal-value payment carrying a memo event to
// the anchor address: the announcement channel of the event log.
type PaymentWithMemoTx struct {
	TransactionType string                `json:"TransactionType"`
	Account         string                `json:"Account"`
	Destination     string                `json:"Destination"`
	Amount          string                `json:"Amount"`
	Memos           []auction.MemoWrapper `json:"Memos"`
	Fee             string                `json:"Fee"`
}

func (EscrowCreateTx) isTx()    {}
func (EscrowFinishTx) isTx()    {}
func (EscrowCancelTx) isTx()    {}
func (PaymentWithMemoTx) isTx() {}

// SubmitResult carries at least the submitted transaction's hash.
type SubmitResult struct {
	Hash string
}

// Submitter is the external sign-and-submit capability: a wallet
// session or key service that signs a transaction descriptor with its
// own account and submits it to the ledger. Signing itself is outside
// this system.
type Submitter interface {
	// Address is the ledger account the submitter signs with.
	Address() string
	SignAndSubmit(ctx context.Context, tx TxDescriptor) (*SubmitResult, error)
}
