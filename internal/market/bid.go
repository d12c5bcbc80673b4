package market

import (
	"math/big"
	"time"
)

// BidRejectReason identifies why a proposed bid failed local validation.
type BidRejectReason string

const (
	RejectNotNumeric        BidRejectReason = "not_numeric"
	RejectNonPositive       BidRejectReason = "non_positive"
	RejectMustExceedHighest BidRejectReason = "must_exceed_highest"
	RejectBelowMinimum      BidRejectReason = "below_minimum"
)

// BidCheck is the outcome of local bid validation. When rejected, Bound
// carries the threshold the bid failed against (highest bid or minimum
// price), for user-facing messages.
type BidCheck struct {
	OK     bool
	Amount *big.Int // parsed wei amount, nil when not numeric
	Reason BidRejectReason
	Bound  *big.Int
}

// ValidateBid checks a proposed bid amount (a decimal ether string) against
// the auction's minimum price and current highest bid, both in wei. The check
// is advisory: the ledger remains the final arbiter and may still reject a
// locally valid bid, e.g. when a concurrent higher bid lands first.
//
// Rules are applied in order: parseable, positive, strictly above the highest
// bid when one exists, at least the minimum price otherwise.
func ValidateBid(amount string, minPrice, highestBid *big.Int) BidCheck {
	wei, err := ParseEther(amount)
	if err != nil {
		return BidCheck{Reason: RejectNotNumeric}
	}
	if wei.Sign() <= 0 {
		return BidCheck{Amount: wei, Reason: RejectNonPositive}
	}
	if highestBid != nil && highestBid.Sign() > 0 {
		if wei.Cmp(highestBid) <= 0 {
			return BidCheck{Amount: wei, Reason: RejectMustExceedHighest, Bound: highestBid}
		}
		return BidCheck{OK: true, Amount: wei}
	}
	if minPrice != nil && wei.Cmp(minPrice) < 0 {
		return BidCheck{Amount: wei, Reason: RejectBelowMinimum, Bound: minPrice}
	}
	return BidCheck{OK: true, Amount: wei}
}

// Auction duration bounds enforced at command-construction time. The ledger
// contract enforces the same bounds; checking here avoids burning gas on a
// doomed transaction.
const (
	MinAuctionDuration = 15 * time.Minute
	MaxAuctionDuration = 30 * 24 * time.Hour
)

// PriceBounds holds the per-deployment absolute price limits for listings and
// auction minimum prices, in wei.
type PriceBounds struct {
	Min *big.Int
	Max *big.Int
}

// CheckPrice validates a listing price or auction minimum against the
// deployment bounds.
func (b PriceBounds) CheckPrice(wei *big.Int) error {
	if wei == nil || wei.Sign() <= 0 {
		return errNonPositivePrice
	}
	if b.Min != nil && wei.Cmp(b.Min) < 0 {
		return errPriceBelowBound
	}
	if b.Max != nil && wei.Cmp(b.Max) > 0 {
		return errPriceAboveBound
	}
	return nil
}

// CheckAuctionDuration validates a proposed auction duration.
func CheckAuctionDuration(d time.Duration) error {
	if d < MinAuctionDuration {
		return errAuctionTooShort
	}
	if d > MaxAuctionDuration {
		return errAuctionTooLong
	}
	return nil
}
