package handler

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimarket/scimarketd/internal/domain"
)

func TestToRecordDTOListing(t *testing.T) {
	t.Parallel()

	seller := common.HexToAddress("0xa1")
	price, _ := new(big.Int).SetString("250000000000000000", 10)
	rec := domain.NftRecord{
		TokenID: 5,
		Owner:   common.HexToAddress("0xcc"),
		Status: domain.Status{
			Kind:    domain.StatusForSale,
			ForSale: &domain.Listing{Seller: seller, Price: price},
		},
		ContentID:  3,
		CopyNumber: 2,
		Title:      "Gene Expression Atlas",
	}

	dto := toRecordDTO(rec, time.Now())

	assert.Equal(t, uint64(5), dto.TokenID)
	assert.Equal(t, domain.StatusForSale, dto.Status.Kind)
	require.NotNil(t, dto.Status.Listing)
	assert.Nil(t, dto.Status.Auction)
	assert.Equal(t, "250000000000000000", dto.Status.Listing.PriceWei)
	assert.Equal(t, "0.25", dto.Status.Listing.PriceEth)
	assert.Equal(t, seller.Hex(), dto.Status.Listing.Seller)
	// No author minted: the field stays empty rather than the zero address.
	assert.Empty(t, dto.Author)
}

func TestToRecordDTOAuctionPhase(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rec := domain.NftRecord{
		TokenID: 6,
		Status: domain.Status{
			Kind: domain.StatusInAuction,
			Auction: &domain.Auction{
				Seller:        common.HexToAddress("0xa1"),
				MinPrice:      big.NewInt(100),
				HighestBid:    big.NewInt(0),
				HighestBidder: domain.ZeroAddress,
				EndTime:       now.Add(time.Hour),
			},
		},
	}

	dto := toRecordDTO(rec, now)
	require.NotNil(t, dto.Status.Auction)
	assert.Equal(t, "active", dto.Status.Auction.Phase)
	assert.Empty(t, dto.Status.Auction.HighestBidder)
	assert.Nil(t, dto.Status.Auction.ActorBid)

	// Same record viewed after the end time reads as expired.
	dto = toRecordDTO(rec, now.Add(2*time.Hour))
	assert.Equal(t, "expired_unclaimed", dto.Status.Auction.Phase)

	rec.Status.Auction.ActorBid = &domain.BidInfo{Amount: big.NewInt(100), Refunded: true}
	dto = toRecordDTO(rec, now)
	require.NotNil(t, dto.Status.Auction.ActorBid)
	assert.True(t, dto.Status.Auction.ActorBid.Refunded)
}

func TestToActivityDTO(t *testing.T) {
	t.Parallel()

	entry := domain.ActivityEntry{
		ID:          "a-1",
		Command:     domain.CommandBid,
		TokenID:     9,
		Actor:       common.HexToAddress("0xb2"),
		TxHash:      common.HexToHash("0xbeef"),
		AmountWei:   big.NewInt(1_000_000_000_000_000_000),
		Status:      domain.ActivityConfirmed,
		BlockNumber: 42,
	}

	dto := toActivityDTO(entry)
	assert.Equal(t, "bid", dto.Command)
	assert.Equal(t, "1000000000000000000", dto.AmountWei)
	assert.Equal(t, "1", dto.AmountEth)
	assert.Equal(t, entry.TxHash.Hex(), dto.TxHash)

	// Pending entries without a hash or amount omit those fields.
	dto = toActivityDTO(domain.ActivityEntry{ID: "a-2", Command: domain.CommandClaim, Status: domain.ActivityPending})
	assert.Empty(t, dto.TxHash)
	assert.Empty(t, dto.AmountWei)
}

func TestToRecordDTOToleratesMissingAmounts(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rec := domain.NftRecord{
		TokenID: 9,
		Status: domain.Status{
			Kind:    domain.StatusForSale,
			ForSale: &domain.Listing{Seller: common.HexToAddress("0xa1")},
		},
	}

	dto := toRecordDTO(rec, now)
	require.NotNil(t, dto.Status.Listing)
	assert.Equal(t, "0", dto.Status.Listing.PriceWei)
	assert.Equal(t, "0", dto.Status.Listing.PriceEth)

	rec = domain.NftRecord{
		TokenID: 10,
		Status: domain.Status{
			Kind: domain.StatusInAuction,
			Auction: &domain.Auction{
				Seller:   common.HexToAddress("0xa1"),
				EndTime:  now.Add(time.Hour),
				ActorBid: &domain.BidInfo{},
			},
		},
	}

	dto = toRecordDTO(rec, now)
	require.NotNil(t, dto.Status.Auction)
	assert.Equal(t, "0", dto.Status.Auction.MinPriceWei)
	assert.Equal(t, "0", dto.Status.Auction.HighestBidWei)
	require.NotNil(t, dto.Status.Auction.ActorBid)
	assert.Equal(t, "0", dto.Status.Auction.ActorBid.AmountWei)
}
