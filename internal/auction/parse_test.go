package auction

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bidTxRecord(t *testing.T, hash string, payload *BidPayload) RawTxRecord {
	t.Helper()
	memo, err := BuildMemo(EventBid, payload)
	require.NoError(t, err)
	tx := map[string]any{
		"TransactionType": "Payment",
		"Account":         payload.Bidder,
		"Destination":     DefaultAnchorAddress,
		"Amount":          "1",
		"Memos":           []map[string]any{{"Memo": memo}},
	}
	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	return RawTxRecord{Tx: raw, Hash: hash, LedgerIndex: 100}
}

func TestParseTx(t *testing.T) {
	bid := &BidPayload{
		Type:        EventBid,
		AuctionID:   "auc_1",
		Bidder:      "rBidder",
		BidDrops:    "2000000",
		EscrowOwner: "rBidder",
		EscrowSeq:   7,
		Timestamp:   1700000000,
	}
	ev := ParseTx(bidTxRecord(t, "HASH1", bid))
	require.NotNil(t, ev)
	assert.Equal(t, EventBid, ev.Type)
	assert.Equal(t, "HASH1", ev.TxHash)
	assert.Equal(t, uint32(100), ev.LedgerIndex)
	assert.Equal(t, bid, ev.Bid)
	assert.Equal(t, "auc_1", ev.AuctionID())
}

func TestParseTxTotality(t *testing.T) {
	cases := []struct {
		name string
		tx   string
	}{
		{name: "not json", tx: `garbage`},
		{name: "no memos", tx: `{"TransactionType":"Payment","Amount":"1"}`},
		{name: "empty memos", tx: `{"Memos":[]}`},
		{name: "memo without data", tx: `{"Memos":[{"Memo":{"MemoType":"41"}}]}`},
		{name: "memo data not hex", tx: `{"Memos":[{"Memo":{"MemoData":"xx!!"}}]}`},
		{name: "memo data foreign json", tx: fmt.Sprintf(`{"Memos":[{"Memo":{"MemoData":"%s"}}]}`, ToHex(`{"hello":"world"}`))},
		{name: "unknown event tag", tx: fmt.Sprintf(`{"Memos":[{"Memo":{"MemoData":"%s"}}]}`, ToHex(`{"type":"AUCTION_DELETE","auction_id":"a"}`))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := ParseTx(RawTxRecord{Tx: json.RawMessage(tc.tx), Hash: "H"})
			assert.Nil(t, ev)
		})
	}
}

func TestParseTxFirstMemoOnly(t *testing.T) {
	first, err := BuildMemo(EventBid, &BidPayload{Type: EventBid, AuctionID: "auc_first"})
	require.NoError(t, err)
	second, err := BuildMemo(EventBid, &BidPayload{Type: EventBid, AuctionID: "auc_second"})
	require.NoError(t, err)

	tx, err := json.Marshal(map[string]any{
		"Memos": []map[string]any{{"Memo": first}, {"Memo": second}},
	})
	require.NoError(t, err)

	ev := ParseTx(RawTxRecord{Tx: tx, Hash: "H"})
	require.NotNil(t, ev)
	assert.Equal(t, "auc_first", ev.AuctionID())
}

func TestParseEvents(t *testing.T) {
	bid := &BidPayload{Type: EventBid, AuctionID: "auc_1", EscrowSeq: 1}
	recs := []RawTxRecord{
		bidTxRecord(t, "H1", bid),
		{Tx: json.RawMessage(`{"TransactionType":"Payment"}`), Hash: "H2"},
		bidTxRecord(t, "H3", bid),
	}
	events := ParseEvents(recs)
	require.Len(t, events, 2)
	assert.Equal(t, "H1", events[0].TxHash)
	assert.Equal(t, "H3", events[1].TxHash)
}
