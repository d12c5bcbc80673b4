package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/scimarket/scimarketd/internal/domain"
)

// batchChunk caps the number of eth_call elements per JSON-RPC batch so a
// full-collection scan stays within provider batch limits.
const batchChunk = 120

// Reader implements domain.BatchReader over a JSON-RPC endpoint. Reads are
// grouped with eth_call batching; each element may fail independently (for
// example ownerOf reverting for a burned token) without failing the batch.
type Reader struct {
	client       *rpc.Client
	nftAddr      common.Address
	marketAddr   common.Address
	registryAddr common.Address
	logger       *slog.Logger
}

var _ domain.BatchReader = (*Reader)(nil)

// NewReader dials the RPC endpoint and returns a Reader.
func NewReader(ctx context.Context, rpcURL string, nftAddr, marketAddr, registryAddr common.Address, logger *slog.Logger) (*Reader, error) {
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dialing %s: %w", rpcURL, err)
	}
	return &Reader{
		client:       client,
		nftAddr:      nftAddr,
		marketAddr:   marketAddr,
		registryAddr: registryAddr,
		logger:       logger.With(slog.String("component", "ledger_reader")),
	}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.client.Close()
}

// callElem builds one eth_call batch element against the latest block.
func callElem(to common.Address, data []byte, result *hexutil.Bytes) rpc.BatchElem {
	return rpc.BatchElem{
		Method: "eth_call",
		Args: []any{
			map[string]any{"to": to, "data": hexutil.Bytes(data)},
			"latest",
		},
		Result: result,
	}
}

func (r *Reader) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: packing %s: %w", method, err)
	}
	var raw hexutil.Bytes
	if err := r.client.CallContext(ctx, &raw, "eth_call",
		map[string]any{"to": to, "data": hexutil.Bytes(data)}, "latest"); err != nil {
		return nil, fmt.Errorf("ledger: %s: %w: %v", method, domain.ErrLedgerUnreachable, err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("ledger: unpacking %s: %w", method, err)
	}
	return out, nil
}

// TotalSupply returns the number of minted tokens.
func (r *Reader) TotalSupply(ctx context.Context) (uint64, error) {
	out, err := r.call(ctx, r.nftAddr, nftABI, "totalSupply")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// tokenCalls is the per-token element layout inside a batch.
type tokenCalls struct {
	tokenID uint64
	owner   hexutil.Bytes
	listing hexutil.Bytes
	auction hexutil.Bytes
	meta    hexutil.Bytes
	uri     hexutil.Bytes
	bid     hexutil.Bytes
	elems   []rpc.BatchElem
}

func (r *Reader) buildTokenCalls(tokenID uint64, bidder *common.Address) (*tokenCalls, error) {
	id := new(big.Int).SetUint64(tokenID)
	tc := &tokenCalls{tokenID: tokenID}

	pack := func(contract abi.ABI, to common.Address, method string, result *hexutil.Bytes, args ...any) error {
		data, err := contract.Pack(method, args...)
		if err != nil {
			return fmt.Errorf("ledger: packing %s: %w", method, err)
		}
		tc.elems = append(tc.elems, callElem(to, data, result))
		return nil
	}

	if err := pack(nftABI, r.nftAddr, "ownerOf", &tc.owner, id); err != nil {
		return nil, err
	}
	if err := pack(marketplaceABI, r.marketAddr, "fixedPriceListings", &tc.listing, id); err != nil {
		return nil, err
	}
	if err := pack(marketplaceABI, r.marketAddr, "auctions", &tc.auction, id); err != nil {
		return nil, err
	}
	if err := pack(nftABI, r.nftAddr, "getNFTMetadata", &tc.meta, id); err != nil {
		return nil, err
	}
	if err := pack(nftABI, r.nftAddr, "tokenURI", &tc.uri, id); err != nil {
		return nil, err
	}
	if bidder != nil {
		if err := pack(marketplaceABI, r.marketAddr, "bids", &tc.bid, id, *bidder); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// ReadTokens fetches the full fact set for each token. Per-element call
// failures leave the corresponding fact nil; only transport-level failure of
// a whole batch round trip is returned as an error.
func (r *Reader) ReadTokens(ctx context.Context, tokenIDs []uint64, bidder *common.Address) ([]domain.TokenFacts, error) {
	calls := make([]*tokenCalls, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		tc, err := r.buildTokenCalls(id, bidder)
		if err != nil {
			return nil, err
		}
		calls = append(calls, tc)
	}
	elems := flattenCalls(calls)

	for start := 0; start < len(elems); start += batchChunk {
		end := min(start+batchChunk, len(elems))
		if err := r.client.BatchCallContext(ctx, elems[start:end]); err != nil {
			return nil, fmt.Errorf("ledger: batch call: %w: %v", domain.ErrLedgerUnreachable, err)
		}
	}

	facts := make([]domain.TokenFacts, 0, len(calls))
	for _, tc := range calls {
		facts = append(facts, r.decodeToken(tc, bidder != nil))
	}
	return facts, nil
}

// flattenCalls concatenates every tokenCalls element list into one batch
// slice and re-points each tokenCalls at its window of it. The shared backing
// keeps the per-element errors BatchCallContext sets visible when decoding.
func flattenCalls(calls []*tokenCalls) []rpc.BatchElem {
	var elems []rpc.BatchElem
	for _, tc := range calls {
		elems = append(elems, tc.elems...)
	}
	off := 0
	for _, tc := range calls {
		n := len(tc.elems)
		tc.elems = elems[off : off+n]
		off += n
	}
	return elems
}

func (r *Reader) decodeToken(tc *tokenCalls, withBid bool) domain.TokenFacts {
	facts := domain.TokenFacts{TokenID: tc.tokenID}
	i := 0
	next := func() *rpc.BatchElem {
		e := &tc.elems[i]
		i++
		return e
	}

	if out, ok := r.unpack(next(), nftABI, "ownerOf", tc.owner, tc.tokenID); ok {
		owner := out[0].(common.Address)
		facts.Owner = &owner
	}
	if out, ok := r.unpack(next(), marketplaceABI, "fixedPriceListings", tc.listing, tc.tokenID); ok {
		facts.Listing = &domain.RawListing{
			Seller: out[0].(common.Address),
			Price:  out[2].(*big.Int),
			Active: out[3].(bool),
		}
	}
	if out, ok := r.unpack(next(), marketplaceABI, "auctions", tc.auction, tc.tokenID); ok {
		facts.Auction = &domain.RawAuction{
			Seller:        out[0].(common.Address),
			MinPrice:      out[2].(*big.Int),
			HighestBid:    out[3].(*big.Int),
			HighestBidder: out[4].(common.Address),
			BidCount:      out[5].(*big.Int).Uint64(),
			StartTime:     out[6].(*big.Int).Uint64(),
			EndTime:       out[7].(*big.Int).Uint64(),
			Active:        out[8].(bool),
			Claimed:       out[9].(bool),
		}
	}
	if out, ok := r.unpack(next(), nftABI, "getNFTMetadata", tc.meta, tc.tokenID); ok {
		facts.Meta = &domain.RawTokenMeta{
			ContentID:         out[0].(*big.Int).Uint64(),
			Author:            out[1].(common.Address),
			CopyNumber:        out[2].(*big.Int).Uint64(),
			HasSpecialContent: out[3].(bool),
		}
	}
	if out, ok := r.unpack(next(), nftABI, "tokenURI", tc.uri, tc.tokenID); ok {
		if facts.Meta != nil {
			facts.Meta.MetadataURI = out[0].(string)
		}
	}
	if withBid {
		if out, ok := r.unpack(next(), marketplaceABI, "bids", tc.bid, tc.tokenID); ok {
			facts.ActorBid = &domain.BidInfo{
				Amount:   out[0].(*big.Int),
				Refunded: out[1].(bool),
			}
		}
	}
	return facts
}

// unpack decodes a batch element's return data, reporting ok=false for
// elements that errored or returned nothing (a reverted call).
func (r *Reader) unpack(elem *rpc.BatchElem, contract abi.ABI, method string, raw hexutil.Bytes, tokenID uint64) ([]any, bool) {
	if elem.Error != nil {
		r.logger.Debug("call failed",
			slog.String("method", method),
			slog.Uint64("token_id", tokenID),
			slog.String("error", elem.Error.Error()),
		)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		r.logger.Debug("unpack failed",
			slog.String("method", method),
			slog.Uint64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return out, true
}

// ReadBid fetches one bidder's recorded bid on one auction.
func (r *Reader) ReadBid(ctx context.Context, tokenID uint64, bidder common.Address) (domain.BidInfo, error) {
	out, err := r.call(ctx, r.marketAddr, marketplaceABI, "bids", new(big.Int).SetUint64(tokenID), bidder)
	if err != nil {
		return domain.BidInfo{}, err
	}
	return domain.BidInfo{
		Amount:   out[0].(*big.Int),
		Refunded: out[1].(bool),
	}, nil
}

// Content fetches a registered work's descriptive fields from the registry.
func (r *Reader) Content(ctx context.Context, contentID uint64) (domain.RegistryContent, error) {
	out, err := r.call(ctx, r.registryAddr, registryABI, "getContent", new(big.Int).SetUint64(contentID))
	if err != nil {
		return domain.RegistryContent{}, err
	}
	return domain.RegistryContent{
		Title:        out[0].(string),
		Description:  out[1].(string),
		Author:       out[2].(common.Address),
		ContentHash:  common.Hash(out[3].([32]byte)),
		Available:    out[4].(bool),
		MaxCopies:    out[5].(*big.Int).Uint64(),
		MintedCopies: out[6].(*big.Int).Uint64(),
		IpfsHash:     out[7].(string),
		MintPrice:    out[8].(*big.Int),
	}, nil
}

// IsApprovedForAll reports whether the marketplace contract may move owner's
// tokens.
func (r *Reader) IsApprovedForAll(ctx context.Context, owner common.Address) (bool, error) {
	out, err := r.call(ctx, r.nftAddr, nftABI, "isApprovedForAll", owner, r.marketAddr)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}
