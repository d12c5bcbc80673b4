package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StatusKind discriminates the mutually exclusive marketplace states a token
// can be in. Exactly one kind is active per record per scan.
type StatusKind string

const (
	StatusInWallet  StatusKind = "in_wallet"
	StatusForSale   StatusKind = "for_sale"
	StatusInAuction StatusKind = "in_auction"
)

// Listing is an active fixed-price listing.
type Listing struct {
	Seller common.Address
	Price  *big.Int // wei
}

// BidInfo is one bidder's recorded bid on an auction.
type BidInfo struct {
	Amount   *big.Int // wei
	Refunded bool
}

// Auction is an active (possibly expired but unclaimed) auction.
//
// EndTime is fixed at auction creation and never changes; Claimed transitions
// false -> true exactly once. HighestBidder is the zero address iff BidCount
// is zero.
type Auction struct {
	Seller        common.Address
	MinPrice      *big.Int // wei
	HighestBid    *big.Int // wei, zero when no bids
	HighestBidder common.Address
	BidCount      uint64
	StartTime     time.Time
	EndTime       time.Time
	Claimed       bool

	// ActorBid is the viewing actor's own bid, populated only for owned-view
	// scans where the subject actor is known. Nil otherwise.
	ActorBid *BidInfo
}

// Status is the tagged union of marketplace states. Kind selects which of the
// payload pointers is non-nil: ForSale for StatusForSale, Auction for
// StatusInAuction, neither for StatusInWallet.
type Status struct {
	Kind    StatusKind
	ForSale *Listing
	Auction *Auction
}

// Seller returns the listing or auction seller, or the zero address for a
// token that is not listed.
func (s Status) Seller() common.Address {
	switch s.Kind {
	case StatusForSale:
		if s.ForSale != nil {
			return s.ForSale.Seller
		}
	case StatusInAuction:
		if s.Auction != nil {
			return s.Auction.Seller
		}
	}
	return common.Address{}
}

// NftRecord is the reconciled per-token view of ledger state. Records are
// synthesized fresh on every scan; they carry no identity across scans other
// than TokenID.
type NftRecord struct {
	TokenID uint64
	Owner   common.Address
	Status  Status

	// Provenance fields, immutable once minted.
	ContentID         uint64
	Author            common.Address
	CopyNumber        uint64
	HasSpecialContent bool
	MetadataURI       string

	// Best-effort enrichment; empty when metadata could not be resolved.
	Title       string
	Description string
	ImageURL    string
}

// ZeroAddress is the ledger's sentinel for "no account".
var ZeroAddress = common.Address{}
