package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	assert.Equal(t, "424944", ToHex("BID"))

	s, ok := FromHex("424944")
	assert.Equal(t, true, ok)
	assert.Equal(t, "BID", s)

	_, ok = FromHex("not hex")
	assert.Equal(t, false, ok)
}

func TestMemoRoundTrip(t *testing.T) {
	create := &AuctionCreatePayload{
		Type:              EventAuctionCreate,
		AuctionID:         "auc_123",
		Seller:            "rSellerXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		Title:             "Vintage camera",
		DescHash:          "QmMetaCid",
		StartTime:         1700000000,
		EndTime:           1700003600,
		Currency:          "XRP",
		MinIncrementDrops: "1000000",
		ReserveDrops:      "5000000",
	}
	memo, err := BuildMemo(EventAuctionCreate, create)
	require.NoError(t, err)
	assert.Equal(t, ToHex(EventAuctionCreate), memo.MemoType)

	payload, eventType := DecodeMemoData(memo.MemoData)
	require.NotNil(t, payload)
	assert.Equal(t, EventAuctionCreate, eventType)
	assert.Equal(t, create, payload.(*AuctionCreatePayload))

	bid := &BidPayload{
		Type:        EventBid,
		AuctionID:   "auc_123",
		Bidder:      "rBidderXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		BidDrops:    "7000000",
		EscrowOwner: "rBidderXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		EscrowSeq:   42,
		Timestamp:   1700000100,
	}
	memo, err = BuildMemo(EventBid, bid)
	require.NoError(t, err)

	payload, eventType = DecodeMemoData(memo.MemoData)
	require.NotNil(t, payload)
	assert.Equal(t, EventBid, eventType)
	assert.Equal(t, bid, payload.(*BidPayload))
}

func TestDecodeMemoDataMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not hex", data: "zzzz"},
		{name: "hex but not json", data: ToHex("hello world")},
		{name: "json without type", data: ToHex(`{"auction_id":"a"}`)},
		{name: "unknown type tag", data: ToHex(`{"type":"FUTURE_EVENT","auction_id":"a"}`)},
		{name: "empty", data: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, eventType := DecodeMemoData(tc.data)
			assert.Nil(t, payload)
			assert.Equal(t, "", eventType)
		})
	}
}

func TestEpochConversion(t *testing.T) {
	assert.Equal(t, int64(0), UnixToRippleSeconds(946684800))
	assert.Equal(t, int64(946684800), RippleToUnixSeconds(0))

	for _, unix := range []int64{0, 1, 946684800, 1700000000, -5} {
		assert.Equal(t, unix, RippleToUnixSeconds(UnixToRippleSeconds(unix)))
	}
}
