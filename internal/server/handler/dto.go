package handler

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/market"
)

// weiString renders a wei amount; a missing value reads as zero, matching
// FormatEther.
func weiString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

// listingDTO is the wire form of a fixed-price listing.
type listingDTO struct {
	Seller   string `json:"seller"`
	PriceWei string `json:"price_wei"`
	PriceEth string `json:"price_eth"`
}

// bidDTO is the wire form of the viewing actor's own bid.
type bidDTO struct {
	AmountWei string `json:"amount_wei"`
	AmountEth string `json:"amount_eth"`
	Refunded  bool   `json:"refunded"`
}

// auctionDTO is the wire form of an auction.
type auctionDTO struct {
	Seller        string    `json:"seller"`
	MinPriceWei   string    `json:"min_price_wei"`
	MinPriceEth   string    `json:"min_price_eth"`
	HighestBidWei string    `json:"highest_bid_wei"`
	HighestBidEth string    `json:"highest_bid_eth"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	BidCount      uint64    `json:"bid_count"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Claimed       bool      `json:"claimed"`
	Phase         string    `json:"phase"`
	ActorBid      *bidDTO   `json:"actor_bid,omitempty"`
}

// statusDTO is the tagged union of marketplace states on the wire.
type statusDTO struct {
	Kind    domain.StatusKind `json:"kind"`
	Listing *listingDTO       `json:"listing,omitempty"`
	Auction *auctionDTO       `json:"auction,omitempty"`
}

// recordDTO is the wire form of one reconciled token.
type recordDTO struct {
	TokenID           uint64    `json:"token_id"`
	Owner             string    `json:"owner"`
	Status            statusDTO `json:"status"`
	ContentID         uint64    `json:"content_id,omitempty"`
	Author            string    `json:"author,omitempty"`
	CopyNumber        uint64    `json:"copy_number,omitempty"`
	HasSpecialContent bool      `json:"has_special_content"`
	MetadataURI       string    `json:"metadata_uri,omitempty"`
	Title             string    `json:"title,omitempty"`
	Description       string    `json:"description,omitempty"`
	ImageURL          string    `json:"image_url,omitempty"`
}

// pageDTO wraps a page of records with snapshot provenance.
type pageDTO struct {
	Records []recordDTO `json:"records"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	TakenAt time.Time   `json:"taken_at"`
}

func toRecordDTO(rec domain.NftRecord, now time.Time) recordDTO {
	out := recordDTO{
		TokenID:           rec.TokenID,
		Owner:             rec.Owner.Hex(),
		Status:            statusDTO{Kind: rec.Status.Kind},
		ContentID:         rec.ContentID,
		CopyNumber:        rec.CopyNumber,
		HasSpecialContent: rec.HasSpecialContent,
		MetadataURI:       rec.MetadataURI,
		Title:             rec.Title,
		Description:       rec.Description,
		ImageURL:          rec.ImageURL,
	}
	if rec.Author != domain.ZeroAddress {
		out.Author = rec.Author.Hex()
	}

	if l := rec.Status.ForSale; l != nil {
		out.Status.Listing = &listingDTO{
			Seller:   l.Seller.Hex(),
			PriceWei: weiString(l.Price),
			PriceEth: market.FormatEther(l.Price),
		}
	}
	if a := rec.Status.Auction; a != nil {
		dto := &auctionDTO{
			Seller:        a.Seller.Hex(),
			MinPriceWei:   weiString(a.MinPrice),
			MinPriceEth:   market.FormatEther(a.MinPrice),
			HighestBidWei: weiString(a.HighestBid),
			HighestBidEth: market.FormatEther(a.HighestBid),
			BidCount:      a.BidCount,
			StartTime:     a.StartTime,
			EndTime:       a.EndTime,
			Claimed:       a.Claimed,
			Phase:         string(market.Phase(now, a.EndTime, a.Claimed)),
		}
		if a.HighestBidder != domain.ZeroAddress {
			dto.HighestBidder = a.HighestBidder.Hex()
		}
		if a.ActorBid != nil {
			dto.ActorBid = &bidDTO{
				AmountWei: weiString(a.ActorBid.Amount),
				AmountEth: market.FormatEther(a.ActorBid.Amount),
				Refunded:  a.ActorBid.Refunded,
			}
		}
		out.Status.Auction = dto
	}
	return out
}

func toPageDTO(records []domain.NftRecord, total int, opts domain.ListOpts, takenAt, now time.Time) pageDTO {
	out := pageDTO{
		Records: make([]recordDTO, 0, len(records)),
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		TakenAt: takenAt,
	}
	for _, rec := range records {
		out.Records = append(out.Records, toRecordDTO(rec, now))
	}
	return out
}

// activityDTO is the wire form of one command history entry.
type activityDTO struct {
	ID          string    `json:"id"`
	Command     string    `json:"command"`
	TokenID     uint64    `json:"token_id"`
	Actor       string    `json:"actor"`
	TxHash      string    `json:"tx_hash,omitempty"`
	AmountWei   string    `json:"amount_wei,omitempty"`
	AmountEth   string    `json:"amount_eth,omitempty"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toActivityDTO(entry domain.ActivityEntry) activityDTO {
	out := activityDTO{
		ID:          entry.ID,
		Command:     string(entry.Command),
		TokenID:     entry.TokenID,
		Actor:       entry.Actor.Hex(),
		Status:      string(entry.Status),
		Reason:      entry.Reason,
		BlockNumber: entry.BlockNumber,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
	if entry.TxHash != (common.Hash{}) {
		out.TxHash = entry.TxHash.Hex()
	}
	if entry.AmountWei != nil {
		out.AmountWei = entry.AmountWei.String()
		out.AmountEth = market.FormatEther(entry.AmountWei)
	}
	return out
}
