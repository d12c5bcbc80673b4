package market

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimarket/scimarketd/internal/domain"
)

var custody = common.HexToAddress("0x00000000000000000000000000000000000000cc")

func addrPtr(a common.Address) *common.Address { return &a }

func custodyFacts(tokenID uint64) domain.TokenFacts {
	return domain.TokenFacts{TokenID: tokenID, Owner: addrPtr(custody)}
}

func activeListing(seller common.Address, price int64) *domain.RawListing {
	return &domain.RawListing{Seller: seller, Price: big.NewInt(price), Active: true}
}

func activeAuction(seller common.Address, end time.Time) *domain.RawAuction {
	return &domain.RawAuction{
		Seller:    seller,
		MinPrice:  big.NewInt(100),
		StartTime: uint64(end.Add(-time.Hour).Unix()),
		EndTime:   uint64(end.Unix()),
		Active:    true,
	}
}

func TestReconcilePublicView(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)
	end := time.Now().Add(time.Hour).Truncate(time.Second)

	listed := custodyFacts(1)
	listed.Listing = activeListing(alice, 250)

	auctioned := custodyFacts(2)
	auctioned.Auction = activeAuction(bob, end)

	held := domain.TokenFacts{TokenID: 3, Owner: addrPtr(carol)}

	records := r.Reconcile(domain.PublicView(), []domain.TokenFacts{listed, auctioned, held})
	require.Len(t, records, 2)

	assert.Equal(t, uint64(1), records[0].TokenID)
	assert.Equal(t, domain.StatusForSale, records[0].Status.Kind)
	require.NotNil(t, records[0].Status.ForSale)
	assert.Equal(t, alice, records[0].Status.ForSale.Seller)
	assert.Equal(t, int64(250), records[0].Status.ForSale.Price.Int64())

	assert.Equal(t, uint64(2), records[1].TokenID)
	assert.Equal(t, domain.StatusInAuction, records[1].Status.Kind)
	require.NotNil(t, records[1].Status.Auction)
	assert.Equal(t, bob, records[1].Status.Auction.Seller)
	assert.True(t, records[1].Status.Auction.EndTime.Equal(end))
}

func TestReconcileDropsUnreadableOwner(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)

	broken := domain.TokenFacts{TokenID: 1} // owner read failed
	good := custodyFacts(2)
	good.Listing = activeListing(alice, 100)

	records := r.Reconcile(domain.PublicView(), []domain.TokenFacts{broken, good})
	require.Len(t, records, 1)
	assert.Equal(t, uint64(2), records[0].TokenID)
}

func TestReconcileStatusMutualExclusion(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)

	// The ledger should never report both an active listing and a live
	// auction; if it does, the listing wins deterministically.
	f := custodyFacts(1)
	f.Listing = activeListing(alice, 100)
	f.Auction = activeAuction(alice, time.Now().Add(time.Hour))

	records := r.Reconcile(domain.PublicView(), []domain.TokenFacts{f})
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusForSale, records[0].Status.Kind)
	assert.Nil(t, records[0].Status.Auction)
}

func TestReconcileIgnoresInactiveState(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)

	cancelled := custodyFacts(1)
	cancelled.Listing = &domain.RawListing{Seller: alice, Price: big.NewInt(100)}

	claimed := custodyFacts(2)
	claimed.Auction = activeAuction(bob, time.Now().Add(-time.Hour))
	claimed.Auction.Claimed = true

	bare := custodyFacts(3)

	records := r.Reconcile(domain.PublicView(), []domain.TokenFacts{cancelled, claimed, bare})
	assert.Empty(t, records)
}

func TestReconcileOwnedView(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)
	view := domain.OwnedView(alice)
	end := time.Now().Add(time.Hour)

	inWallet := domain.TokenFacts{TokenID: 1, Owner: addrPtr(alice)}

	ownListing := custodyFacts(2)
	ownListing.Listing = activeListing(alice, 100)

	othersListing := custodyFacts(3)
	othersListing.Listing = activeListing(bob, 100)

	ownAuction := custodyFacts(4)
	ownAuction.Auction = activeAuction(alice, end)

	othersAuction := custodyFacts(5)
	othersAuction.Auction = activeAuction(bob, end)

	thirdParty := domain.TokenFacts{TokenID: 6, Owner: addrPtr(carol)}

	records := r.Reconcile(view, []domain.TokenFacts{
		inWallet, ownListing, othersListing, ownAuction, othersAuction, thirdParty,
	})
	require.Len(t, records, 3)

	assert.Equal(t, uint64(1), records[0].TokenID)
	assert.Equal(t, domain.StatusInWallet, records[0].Status.Kind)
	assert.Equal(t, alice, records[0].Owner)

	assert.Equal(t, uint64(2), records[1].TokenID)
	assert.Equal(t, domain.StatusForSale, records[1].Status.Kind)

	assert.Equal(t, uint64(4), records[2].TokenID)
	assert.Equal(t, domain.StatusInAuction, records[2].Status.Kind)
}

func TestReconcileCarriesProvenanceAndActorBid(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)

	f := custodyFacts(9)
	f.Auction = activeAuction(alice, time.Now().Add(time.Hour))
	f.Meta = &domain.RawTokenMeta{
		ContentID:         3,
		Author:            carol,
		CopyNumber:        2,
		HasSpecialContent: true,
		MetadataURI:       "ipfs://QmExample",
	}
	f.ActorBid = &domain.BidInfo{Amount: big.NewInt(150)}

	records := r.Reconcile(domain.OwnedView(alice), []domain.TokenFacts{f})
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, uint64(3), rec.ContentID)
	assert.Equal(t, carol, rec.Author)
	assert.Equal(t, uint64(2), rec.CopyNumber)
	assert.True(t, rec.HasSpecialContent)
	assert.Equal(t, "ipfs://QmExample", rec.MetadataURI)

	require.NotNil(t, rec.Status.Auction)
	require.NotNil(t, rec.Status.Auction.ActorBid)
	assert.Equal(t, int64(150), rec.Status.Auction.ActorBid.Amount.Int64())
}

func TestReconcileAuctionTimesAreUTC(t *testing.T) {
	t.Parallel()

	r := NewReconciler(custody)

	f := custodyFacts(1)
	f.Auction = &domain.RawAuction{
		Seller:    alice,
		MinPrice:  big.NewInt(1),
		StartTime: 1_767_225_600,
		EndTime:   1_767_312_000,
		Active:    true,
	}

	records := r.Reconcile(domain.PublicView(), []domain.TokenFacts{f})
	require.Len(t, records, 1)
	auc := records[0].Status.Auction
	require.NotNil(t, auc)
	assert.Equal(t, time.UTC, auc.StartTime.Location())
	assert.Equal(t, int64(1_767_312_000), auc.EndTime.Unix())
}
