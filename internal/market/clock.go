package market

import "time"

// AuctionPhase is the time-derived lifecycle phase of an auction.
type AuctionPhase string

const (
	// PhaseActive: the auction is still accepting bids.
	PhaseActive AuctionPhase = "active"
	// PhaseExpiredUnclaimed: bidding has ended but the outcome has not been
	// claimed yet.
	PhaseExpiredUnclaimed AuctionPhase = "expired_unclaimed"
	// PhaseClosed: the auction outcome has been claimed.
	PhaseClosed AuctionPhase = "closed"
)

// Phase derives an auction's phase from the clock and the immutable ledger
// timestamps. It is a pure function: now is injected rather than read from
// the system clock so the derivation is deterministic.
func Phase(now, endTime time.Time, claimed bool) AuctionPhase {
	if claimed {
		return PhaseClosed
	}
	if now.Before(endTime) {
		return PhaseActive
	}
	return PhaseExpiredUnclaimed
}
