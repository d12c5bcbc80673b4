package market

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
)

// Reconciler turns raw per-token ledger facts into canonical NftRecords for a
// view. It is stateless: every scan rebuilds every record from scratch, so
// the snapshot can never drift from ledger truth between scans.
type Reconciler struct {
	custody common.Address // marketplace custody account holding listed tokens
}

// NewReconciler creates a Reconciler for a marketplace custody address.
func NewReconciler(custody common.Address) *Reconciler {
	return &Reconciler{custody: custody}
}

// Reconcile classifies each token's facts into at most one record with
// exactly one status. Tokens whose owner could not be read, and tokens
// irrelevant to the view's membership predicate, are dropped; per-fact read
// failures never abort the rest of the batch.
func (r *Reconciler) Reconcile(view domain.View, facts []domain.TokenFacts) []domain.NftRecord {
	records := make([]domain.NftRecord, 0, len(facts))
	for _, f := range facts {
		if rec, ok := r.reconcileToken(view, f); ok {
			records = append(records, rec)
		}
	}
	return records
}

func (r *Reconciler) reconcileToken(view domain.View, f domain.TokenFacts) (domain.NftRecord, bool) {
	// Unknown owner: the token cannot be classified this scan.
	if f.Owner == nil {
		return domain.NftRecord{}, false
	}
	owner := *f.Owner

	rec := domain.NftRecord{
		TokenID: f.TokenID,
		Owner:   owner,
	}
	if f.Meta != nil {
		rec.ContentID = f.Meta.ContentID
		rec.Author = f.Meta.Author
		rec.CopyNumber = f.Meta.CopyNumber
		rec.HasSpecialContent = f.Meta.HasSpecialContent
		rec.MetadataURI = f.Meta.MetadataURI
	}

	// Held by the viewing actor: in-wallet, owned view only.
	if view.Kind == domain.ViewOwned && owner == view.Actor {
		rec.Status = domain.Status{Kind: domain.StatusInWallet}
		return rec, true
	}

	// Not in custody and not the actor's: a third party holds it, so the
	// token is irrelevant to both views.
	if owner != r.custody {
		return domain.NftRecord{}, false
	}

	// In custody: a fixed-price listing beats an auction when the ledger
	// ever reports both active. The contract is expected to guarantee mutual
	// exclusion; this ordering is a deterministic fallback.
	if f.Listing != nil && f.Listing.Active {
		if view.Kind == domain.ViewOwned && f.Listing.Seller != view.Actor {
			return domain.NftRecord{}, false
		}
		rec.Status = domain.Status{
			Kind: domain.StatusForSale,
			ForSale: &domain.Listing{
				Seller: f.Listing.Seller,
				Price:  f.Listing.Price,
			},
		}
		return rec, true
	}

	if f.Auction != nil && f.Auction.Active && !f.Auction.Claimed {
		if view.Kind == domain.ViewOwned && f.Auction.Seller != view.Actor {
			return domain.NftRecord{}, false
		}
		rec.Status = domain.Status{
			Kind:    domain.StatusInAuction,
			Auction: rawAuctionToStatus(f.Auction, f.ActorBid),
		}
		return rec, true
	}

	// In custody with neither an active listing nor a live auction: stale
	// custody state, irrelevant to every view.
	return domain.NftRecord{}, false
}

func rawAuctionToStatus(a *domain.RawAuction, actorBid *domain.BidInfo) *domain.Auction {
	return &domain.Auction{
		Seller:        a.Seller,
		MinPrice:      a.MinPrice,
		HighestBid:    a.HighestBid,
		HighestBidder: a.HighestBidder,
		BidCount:      a.BidCount,
		StartTime:     time.Unix(int64(a.StartTime), 0).UTC(),
		EndTime:       time.Unix(int64(a.EndTime), 0).UTC(),
		Claimed:       a.Claimed,
		ActorBid:      actorBid,
	}
}
