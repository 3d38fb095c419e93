package auction

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

// RippleEpochOffset is the Unix timestamp of the Ripple epoch
// (2000-01-01 00:00:00 UTC). All ledger-native time fields count
// seconds from this epoch, not the Unix one.
const RippleEpochOffset = 946684800

// DropsPerXRP is the number of drops (smallest indivisible unit) in one XRP.
const DropsPerXRP = 1_000_000

// DefaultAnchorAddress is the auction index anchor account receiving the
// minimal-value memo-bearing event transactions.
const DefaultAnchorAddress = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"

// Escrow timing defaults, in seconds past auction end.
const (
	// DefaultReleaseDelaySec of 0 means the winning escrow is finishable
	// right at auction close.
	DefaultReleaseDelaySec = 0
	// DefaultCancelGraceSec opens the refund window for non-winners.
	DefaultCancelGraceSec = 60
)

// UnixToRippleSeconds converts Unix seconds to Ripple epoch seconds.
func UnixToRippleSeconds(unix int64) int64 {
	return unix - RippleEpochOffset
}

// RippleToUnixSeconds converts Ripple epoch seconds to Unix seconds.
func RippleToUnixSeconds(ripple int64) int64 {
	return ripple + RippleEpochOffset
}

// Memo is the XRPL memo attachment: both fields are uppercase hex of
// UTF-8 bytes.
type Memo struct {
	MemoType string `json:"MemoType"`
	MemoData string `json:"MemoData"`
}

// ToHex encodes text as uppercase hex, the byte form XRPL memos expect.
func ToHex(text string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(text)))
}

// FromHex decodes hex back to text. Returns "" and false on malformed input.
func FromHex(h string) (string, bool) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// BuildMemo serializes an event payload into a memo attachment. The
// payload is marshalled to JSON and hex-encoded; the event tag rides
// along as the MemoType.
func BuildMemo(eventType string, payload any) (Memo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Memo{}, err
	}
	return Memo{
		MemoType: ToHex(eventType),
		MemoData: ToHex(string(data)),
	}, nil
}

// DecodeMemoData decodes a hex memo data field into a typed event
// payload. Returns (nil, "") on any malformed or unrecognized input:
// foreign memos are routine noise, not errors.
func DecodeMemoData(memoData string) (any, string) {
	jsonText, ok := FromHex(memoData)
	if !ok {
		return nil, ""
	}
	return DecodePayload([]byte(jsonText))
}

// DecodePayload decodes a JSON event payload by its type tag. Returns
// (nil, "") for malformed JSON and unknown tags.
func DecodePayload(jsonText []byte) (any, string) {
	// Peek at the tag before committing to a payload shape.
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(jsonText, &probe); err != nil {
		return nil, ""
	}

	switch probe.Type {
	case EventAuctionCreate:
		var p AuctionCreatePayload
		if err := json.Unmarshal(jsonText, &p); err != nil {
			return nil, ""
		}
		return &p, EventAuctionCreate
	case EventBid:
		var p BidPayload
		if err := json.Unmarshal(jsonText, &p); err != nil {
			return nil, ""
		}
		return &p, EventBid
	case EventShipCommit:
		var p ShipCommitPayload
		if err := json.Unmarshal(jsonText, &p); err != nil {
			return nil, ""
		}
		return &p, EventShipCommit
	case EventReceivedConfirm:
		var p ReceivedConfirmPayload
		if err := json.Unmarshal(jsonText, &p); err != nil {
			return nil, ""
		}
		return &p, EventReceivedConfirm
	default:
		// Unknown future event types are silently ignored.
		return nil, ""
	}
}
