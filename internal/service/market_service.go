// Package service holds the application layer: read queries over the scan
// snapshots and the command execution path to the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/market"
)

// RecordPage is one page of records plus the snapshot it was cut from.
type RecordPage struct {
	Records []domain.NftRecord
	Total   int
	TakenAt time.Time
}

// MarketService answers read queries from the reconciled snapshots. Queries
// never reach the ledger directly except for the point bid read backing
// refund eligibility.
type MarketService struct {
	scans  *market.Manager
	reader domain.BatchReader
	bounds market.PriceBounds
	logger *slog.Logger
	now    func() time.Time
}

// NewMarketService wires a MarketService.
func NewMarketService(scans *market.Manager, reader domain.BatchReader, bounds market.PriceBounds, logger *slog.Logger) *MarketService {
	return &MarketService{
		scans:  scans,
		reader: reader,
		bounds: bounds,
		logger: logger.With(slog.String("component", "market_service")),
		now:    time.Now,
	}
}

// Bounds returns the configured listing price bounds.
func (s *MarketService) Bounds() market.PriceBounds {
	return s.bounds
}

// ListOwned returns a page of the actor's holdings view.
func (s *MarketService) ListOwned(ctx context.Context, actor common.Address, opts domain.ListOpts) (RecordPage, error) {
	snap, err := s.scans.Owned(ctx, actor)
	if err != nil {
		return RecordPage{}, fmt.Errorf("service: owned view for %s: %w", actor.Hex(), err)
	}
	return RecordPage{
		Records: domain.Page(snap.Records, opts),
		Total:   len(snap.Records),
		TakenAt: snap.TakenAt,
	}, nil
}

// ListMarketplace returns a page of the public view, optionally narrowed to
// fixed-price listings or auctions.
func (s *MarketService) ListMarketplace(ctx context.Context, filter domain.MarketFilter, opts domain.ListOpts) (RecordPage, error) {
	snap := s.scans.Public()
	if snap == nil {
		return RecordPage{}, fmt.Errorf("service: marketplace view not ready: %w", domain.ErrFactUnavailable)
	}
	matched := snap.Filter(filter)
	return RecordPage{
		Records: domain.Page(matched, opts),
		Total:   len(matched),
		TakenAt: snap.TakenAt,
	}, nil
}

// GetToken returns one token's record. The public snapshot is consulted
// first; when an actor is given, their holdings view is consulted as well so
// in-wallet tokens resolve too.
func (s *MarketService) GetToken(ctx context.Context, tokenID uint64, actor *common.Address) (domain.NftRecord, error) {
	if snap := s.scans.Public(); snap != nil {
		if rec, ok := snap.Get(tokenID); ok {
			return rec, nil
		}
	}
	if actor != nil {
		snap, err := s.scans.Owned(ctx, *actor)
		if err != nil {
			return domain.NftRecord{}, err
		}
		if rec, ok := snap.Get(tokenID); ok {
			return rec, nil
		}
	}
	return domain.NftRecord{}, fmt.Errorf("service: token %d: %w", tokenID, domain.ErrNotFound)
}

// PermittedCommands evaluates which commands actor may currently submit for
// tokenID. Refund eligibility needs the actor's recorded bid; when the record
// came from the public snapshot that bid is fetched with a point read.
func (s *MarketService) PermittedCommands(ctx context.Context, tokenID uint64, actor common.Address) (domain.CommandSet, error) {
	rec, err := s.GetToken(ctx, tokenID, &actor)
	if err != nil {
		return nil, err
	}
	actorBid, err := s.actorBid(ctx, rec, actor)
	if err != nil {
		return nil, err
	}
	return market.PermittedCommands(rec, actor, actorBid, s.now()), nil
}

func (s *MarketService) actorBid(ctx context.Context, rec domain.NftRecord, actor common.Address) (*domain.BidInfo, error) {
	if rec.Status.Kind != domain.StatusInAuction {
		return nil, nil
	}
	if rec.Status.Auction.ActorBid != nil {
		return rec.Status.Auction.ActorBid, nil
	}
	bid, err := s.reader.ReadBid(ctx, rec.TokenID, actor)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerUnreachable) {
			return nil, fmt.Errorf("service: bid for token %d: %w", rec.TokenID, err)
		}
		// A reverted read means no bid is recorded.
		return nil, nil
	}
	return &bid, nil
}

// ValidateBid checks a proposed bid amount against tokenID's live auction
// without touching the ledger.
func (s *MarketService) ValidateBid(ctx context.Context, tokenID uint64, amount string, actor *common.Address) (market.BidCheck, error) {
	rec, err := s.GetToken(ctx, tokenID, actor)
	if err != nil {
		return market.BidCheck{}, err
	}
	if rec.Status.Kind != domain.StatusInAuction {
		return market.BidCheck{}, fmt.Errorf("service: token %d is not under auction: %w", tokenID, domain.ErrCommandNotAllowed)
	}
	auction := rec.Status.Auction
	return market.ValidateBid(amount, auction.MinPrice, auction.HighestBid), nil
}

// ScanStatus reports all live scan loops.
func (s *MarketService) ScanStatus() []domain.ScanStatus {
	return s.scans.Status()
}

// TriggerScan requests an immediate re-scan of every live view.
func (s *MarketService) TriggerScan() {
	s.scans.TriggerRescan(0)
}
