package auction

// Event type tags carried in the memo "type" field. These four strings
// are the wire contract shared with every other reader/writer of the
// auction index account.
const (
	EventAuctionCreate   = "AUCTION_CREATE"
	EventBid             = "BID"
	EventShipCommit      = "SHIP_COMMIT"
	EventReceivedConfirm = "RECEIVED_CONFIRM"
)

// AuctionCreatePayload announces a new auction (or corrects an existing
// one with the same auction_id).
type AuctionCreatePayload struct {
	Type              string `json:"type"`
	AuctionID         string `json:"auction_id"`
	Seller            string `json:"seller"`
	Title             string `json:"title"`
	DescHash          string `json:"desc_hash"` // sha256 hash or IPFS CID of extended metadata
	StartTime         int64  `json:"start_time"` // Unix seconds
	EndTime           int64  `json:"end_time"`   // Unix seconds
	Currency          string `json:"currency"`
	MinIncrementDrops string `json:"min_increment_drops"`
	ReserveDrops      string `json:"reserve_drops"`
	ShippingPolicy    string `json:"shipping_policy_hash,omitempty"`
}

// BidPayload announces a bid backed by an escrow lock addressed by
// (escrow_owner, escrow_seq).
type BidPayload struct {
	Type        string `json:"type"`
	AuctionID   string `json:"auction_id"`
	Bidder      string `json:"bidder"`
	BidDrops    string `json:"bid_drops"`
	EscrowOwner string `json:"escrow_owner"`
	EscrowSeq   uint32 `json:"escrow_seq"`
	Timestamp   int64  `json:"ts"` // Unix seconds
}

// ShipCommitPayload is the seller's shipping commitment for the winner.
type ShipCommitPayload struct {
	Type         string `json:"type"`
	AuctionID    string `json:"auction_id"`
	Seller       string `json:"seller"`
	Winner       string `json:"winner"`
	TrackingHash string `json:"tracking_hash,omitempty"`
	Timestamp    int64  `json:"ts"`
}

// ReceivedConfirmPayload is the buyer's confirmation of receipt.
type ReceivedConfirmPayload struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	Buyer     string `json:"buyer"`
	Timestamp int64  `json:"ts"`
}

// Event is one parsed auction event together with its source
// transaction reference.
type Event struct {
	Type        string
	TxHash      string
	LedgerIndex uint32

	// Exactly one of the following is non-nil, matching Type.
	Create   *AuctionCreatePayload
	Bid      *BidPayload
	Ship     *ShipCommitPayload
	Received *ReceivedConfirmPayload
}

// AuctionID returns the correlation key of the event's payload.
func (e *Event) AuctionID() string {
	switch e.Type {
	case EventAuctionCreate:
		return e.Create.AuctionID
	case EventBid:
		return e.Bid.AuctionID
	case EventShipCommit:
		return e.Ship.AuctionID
	case EventReceivedConfirm:
		return e.Received.AuctionID
	}
	return ""
}

// BidEntry is one bid inside an aggregate, keeping its source tx hash.
type BidEntry struct {
	Payload *BidPayload `json:"payload"`
	TxHash  string      `json:"tx_hash"`
}

// ShipEntry is an aggregate's shipping commitment with its source tx
// hash.
type ShipEntry struct {
	Payload *ShipCommitPayload `json:"payload"`
	TxHash  string             `json:"tx_hash"`
}

// ReceivedEntry is an aggregate's receipt confirmation with its source
// tx hash.
type ReceivedEntry struct {
	Payload *ReceivedConfirmPayload `json:"payload"`
	TxHash  string                  `json:"tx_hash"`
}

// Aggregate is the rebuilt-on-read summary of one auction's lifecycle.
// Create is nil for placeholder aggregates seeded by an orphan bid.
type Aggregate struct {
	Create   *AuctionCreatePayload `json:"auction"`
	TxHash   string                `json:"tx_hash"`
	Bids     []BidEntry            `json:"bids"`
	Ship     *ShipEntry            `json:"ship_commit,omitempty"`
	Received *ReceivedEntry        `json:"received_confirm,omitempty"`
}
