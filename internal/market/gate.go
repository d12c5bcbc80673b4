package market

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
)

// PermittedCommands decides which commands actor may currently submit for the
// given record. actorBid is the actor's recorded bid on the token's auction,
// when known (nil means "no bid" for gating purposes; callers that cannot
// cheaply know should fetch it before asking about refunds).
//
// The decision is advisory, like bid validation: the ledger enforces the same
// rules authoritatively and a permitted command may still revert if the local
// snapshot is stale.
func PermittedCommands(rec domain.NftRecord, actor common.Address, actorBid *domain.BidInfo, now time.Time) domain.CommandSet {
	out := domain.CommandSet{}
	if actor == domain.ZeroAddress {
		return out
	}

	switch rec.Status.Kind {
	case domain.StatusInWallet:
		if rec.Owner == actor {
			out[domain.CommandList] = true
			out[domain.CommandTransfer] = true
		}

	case domain.StatusForSale:
		if rec.Status.ForSale == nil {
			return out
		}
		if rec.Status.ForSale.Seller == actor {
			out[domain.CommandRevoke] = true
		} else {
			out[domain.CommandPurchase] = true
		}

	case domain.StatusInAuction:
		auc := rec.Status.Auction
		if auc == nil {
			return out
		}
		switch Phase(now, auc.EndTime, auc.Claimed) {
		case PhaseActive:
			if auc.Seller != actor {
				out[domain.CommandBid] = true
			}

		case PhaseExpiredUnclaimed:
			if auc.HighestBidder == domain.ZeroAddress {
				// No bids: the seller reclaims the token.
				if auc.Seller == actor {
					out[domain.CommandClaim] = true
				}
				return out
			}
			if auc.HighestBidder == actor {
				out[domain.CommandClaim] = true
				return out
			}
			// Losing bidders may withdraw their escrowed bid exactly once.
			if actorBid != nil && actorBid.Amount != nil &&
				actorBid.Amount.Sign() > 0 && !actorBid.Refunded {
				out[domain.CommandRefund] = true
			}

		case PhaseClosed:
			// Nothing left to do on a settled auction.
		}
	}

	return out
}
