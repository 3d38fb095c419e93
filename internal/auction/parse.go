package auction

import "encoding/json"

// MemoWrapper mirrors the XRPL "Memos" array element shape.
type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

// RawTxRecord is one raw transaction as returned by the ledger's
// account_tx query: the transaction object itself plus its hash and the
// ledger it validated in.
type RawTxRecord struct {
	Tx          json.RawMessage `json:"tx"`
	Hash        string          `json:"hash"`
	LedgerIndex uint32          `json:"ledger_index,omitempty"`
}

// ParseTx extracts an auction event from a raw transaction record, or
// returns nil when the record carries none. Only the first attached
// memo is examined: one event per transaction is a protocol limitation,
// multi-memo transactions are not supported. Never fails on malformed
// input.
func ParseTx(rec RawTxRecord) *Event {
	var body struct {
		Memos []MemoWrapper `json:"Memos"`
	}
	if err := json.Unmarshal(rec.Tx, &body); err != nil {
		return nil
	}
	if len(body.Memos) == 0 {
		return nil
	}
	first := body.Memos[0].Memo
	if first.MemoData == "" {
		return nil
	}

	payload, eventType := DecodeMemoData(first.MemoData)
	if payload == nil {
		return nil
	}

	ev := &Event{
		Type:        eventType,
		TxHash:      rec.Hash,
		LedgerIndex: rec.LedgerIndex,
	}
	switch p := payload.(type) {
	case *AuctionCreatePayload:
		ev.Create = p
	case *BidPayload:
		ev.Bid = p
	case *ShipCommitPayload:
		ev.Ship = p
	case *ReceivedConfirmPayload:
		ev.Received = p
	}
	return ev
}

// ParseEvents runs ParseTx over a batch of records, dropping the ones
// that carry no auction event. Order is preserved.
func ParseEvents(recs []RawTxRecord) []*Event {
	var events []*Event
	for _, rec := range recs {
		if ev := ParseTx(rec); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}
