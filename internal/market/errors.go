package market

import (
	"fmt"

	"github.com/scimarket/scimarketd/internal/domain"
)

// Command-construction bound violations. All wrap domain.ErrInvalidCommand so
// callers can classify them with errors.Is.
var (
	errNonPositivePrice = fmt.Errorf("%w: price must be positive", domain.ErrInvalidCommand)
	errPriceBelowBound  = fmt.Errorf("%w: price below deployment minimum", domain.ErrInvalidCommand)
	errPriceAboveBound  = fmt.Errorf("%w: price above deployment maximum", domain.ErrInvalidCommand)
	errAuctionTooShort  = fmt.Errorf("%w: auction duration below 15 minutes", domain.ErrInvalidCommand)
	errAuctionTooLong   = fmt.Errorf("%w: auction duration above 30 days", domain.ErrInvalidCommand)
)
