// Package ledger talks to the EVM contracts backing the marketplace: batched
// read calls for the reconciliation scans and signed transactions for
// gallery commands.
package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Hand-maintained ABI fragments for the three contracts. Only the methods
// this service calls are listed.
const nftABIJSON = `[
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getNFTMetadata","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"contentId","type":"uint256"},{"name":"author","type":"address"},{"name":"copyNumber","type":"uint256"},{"name":"hasSpecialContent","type":"bool"}]},
  {"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

const marketplaceABIJSON = `[
  {"type":"function","name":"fixedPriceListings","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"listedAt","type":"uint256"}]},
  {"type":"function","name":"auctions","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"minPrice","type":"uint256"},{"name":"highestBid","type":"uint256"},{"name":"highestBidder","type":"address"},{"name":"bidCount","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"claimed","type":"bool"}]},
  {"type":"function","name":"bids","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"},{"name":"bidder","type":"address"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"refunded","type":"bool"}]},
  {"type":"function","name":"listNFT","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelListing","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyNFT","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"startAuction","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"minPrice","type":"uint256"},{"name":"duration","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"placeBid","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimAuction","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

const registryABIJSON = `[
  {"type":"function","name":"getContent","stateMutability":"view","inputs":[{"name":"contentId","type":"uint256"}],"outputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"author","type":"address"},{"name":"contentHash","type":"bytes32"},{"name":"available","type":"bool"},{"name":"maxCopies","type":"uint256"},{"name":"mintedCopies","type":"uint256"},{"name":"ipfsHash","type":"string"},{"name":"mintPrice","type":"uint256"}]}
]`

var (
	nftABI         abi.ABI
	marketplaceABI abi.ABI
	registryABI    abi.ABI
)

func init() {
	nftABI = mustParseABI("nft", nftABIJSON)
	marketplaceABI = mustParseABI("marketplace", marketplaceABIJSON)
	registryABI = mustParseABI("registry", registryABIJSON)
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("ledger: parsing %s ABI: %v", name, err))
	}
	return parsed
}
