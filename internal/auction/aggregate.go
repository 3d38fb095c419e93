package auction

import "sort"

// BuildAuctionMap folds a chronologically ordered event stream into a
// per-auction aggregate map. The fold never fails: duplicates,
// resubmissions, and out-of-order fragments degrade gracefully instead
// of aborting the pass.
//
// Rules, per event type:
//   - AUCTION_CREATE seeds a new aggregate, or overwrites only the
//     creation record of an existing one (a later create for the same id
//     is a correction, not a new auction) while preserving accumulated
//     bids.
//   - BID appends to the aggregate, seeding a placeholder with a nil
//     creation record when the bid arrives before its create event, so
//     the bid is not lost.
//   - SHIP_COMMIT / RECEIVED_CONFIRM attach only when the aggregate
//     already exists; shipment or receipt without any known auction is
//     not actionable and is dropped.
func BuildAuctionMap(events []*Event) map[string]*Aggregate {
	m := make(map[string]*Aggregate)
	for _, ev := range events {
		switch ev.Type {
		case EventAuctionCreate:
			a, ok := m[ev.Create.AuctionID]
			if !ok {
				m[ev.Create.AuctionID] = &Aggregate{Create: ev.Create, TxHash: ev.TxHash}
			} else {
				a.Create = ev.Create
				a.TxHash = ev.TxHash
			}
		case EventBid:
			a, ok := m[ev.Bid.AuctionID]
			if !ok {
				a = &Aggregate{}
				m[ev.Bid.AuctionID] = a
			}
			a.Bids = append(a.Bids, BidEntry{Payload: ev.Bid, TxHash: ev.TxHash})
		case EventShipCommit:
			if a, ok := m[ev.Ship.AuctionID]; ok {
				a.Ship = &ShipEntry{Payload: ev.Ship, TxHash: ev.TxHash}
			}
		case EventReceivedConfirm:
			if a, ok := m[ev.Received.AuctionID]; ok {
				a.Received = &ReceivedEntry{Payload: ev.Received, TxHash: ev.TxHash}
			}
		}
	}
	return m
}

// ListAuctions projects the aggregate map into the caller-facing list:
// placeholder aggregates (nil creation record) are excluded, and the
// rest are ordered by auction end time, latest-ending first.
func ListAuctions(m map[string]*Aggregate) []*Aggregate {
	list := make([]*Aggregate, 0, len(m))
	for _, a := range m {
		if a.Create != nil && a.Create.AuctionID != "" {
			list = append(list, a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Create.EndTime > list[j].Create.EndTime
	})
	return list
}
