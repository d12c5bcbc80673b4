package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RawListing is the fixed-price listing struct exactly as stored on the
// ledger, before reconciliation.
type RawListing struct {
	Seller common.Address
	Price  *big.Int
	Active bool
}

// RawAuction is the auction struct exactly as stored on the ledger.
type RawAuction struct {
	Seller        common.Address
	MinPrice      *big.Int
	HighestBid    *big.Int
	HighestBidder common.Address
	BidCount      uint64
	StartTime     uint64 // unix seconds
	EndTime       uint64 // unix seconds
	Active        bool
	Claimed       bool
}

// RawTokenMeta is the per-token provenance struct minted into the NFT
// contract.
type RawTokenMeta struct {
	ContentID         uint64
	Author            common.Address
	HasSpecialContent bool
	CopyNumber        uint64
	MetadataURI       string
}

// TokenFacts bundles the independently stored ledger facts for one token as
// returned by a batched read. A nil field means that fact's read failed or
// reverted and the fact is unknown for this scan; the token's Owner pointer
// being nil means the token cannot be classified at all.
type TokenFacts struct {
	TokenID  uint64
	Owner    *common.Address
	Listing  *RawListing
	Auction  *RawAuction
	Meta     *RawTokenMeta
	ActorBid *BidInfo // subject actor's bid, owned-view scans only
}

// RegistryContent holds the descriptive fields the content registry stores
// for a registered work.
type RegistryContent struct {
	Title       string
	Description string
	Author      common.Address
	ContentHash common.Hash
	Available   bool
	MaxCopies   uint64
	MintedCopies uint64
	IpfsHash    string
	MintPrice   *big.Int
}

// BatchReader issues grouped read calls against the ledger. Individual call
// failures are absorbed into the returned facts (nil fields); only
// channel-level unreachability is returned as an error (ErrLedgerUnreachable).
type BatchReader interface {
	// TotalSupply returns the number of minted tokens; token identifiers are
	// 1..TotalSupply.
	TotalSupply(ctx context.Context) (uint64, error)

	// ReadTokens fetches owner, listing, auction, and token metadata for each
	// token in one or few round trips. When bidder is non-nil, each auction
	// fact is accompanied by that bidder's recorded bid.
	ReadTokens(ctx context.Context, tokenIDs []uint64, bidder *common.Address) ([]TokenFacts, error)

	// ReadBid fetches a single bidder's recorded bid on one auction.
	ReadBid(ctx context.Context, tokenID uint64, bidder common.Address) (BidInfo, error)

	// Content fetches a registered work's descriptive fields.
	Content(ctx context.Context, contentID uint64) (RegistryContent, error)

	// IsApprovedForAll reports whether the marketplace custody contract is an
	// approved operator for owner's tokens.
	IsApprovedForAll(ctx context.Context, owner common.Address) (bool, error)
}

// CommandSubmitter is the signed-command write channel to the ledger. Each
// method builds, signs, and submits one transaction and blocks until the
// ledger reports a receipt. A mined-but-reverted transaction is returned as
// ErrCommandReverted together with the receipt.
type CommandSubmitter interface {
	ListForSale(ctx context.Context, tokenID uint64, price *big.Int) (Receipt, error)
	RemoveFromSale(ctx context.Context, tokenID uint64) (Receipt, error)
	StartAuction(ctx context.Context, tokenID uint64, minPrice *big.Int, duration time.Duration) (Receipt, error)
	PlaceBid(ctx context.Context, tokenID uint64, amount *big.Int) (Receipt, error)
	Purchase(ctx context.Context, tokenID uint64, price *big.Int) (Receipt, error)
	ClaimAuction(ctx context.Context, tokenID uint64) (Receipt, error)
	ClaimRefund(ctx context.Context, tokenID uint64) (Receipt, error)
	Transfer(ctx context.Context, tokenID uint64, to common.Address) (Receipt, error)
	SetApprovalForAll(ctx context.Context, approved bool) (Receipt, error)

	// Actor returns the address the submitter signs as.
	Actor() common.Address
}
