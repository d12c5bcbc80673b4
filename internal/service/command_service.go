package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/market"
	"github.com/scimarket/scimarketd/internal/notify"
)

// CommandRequest carries the parameters of one marketplace command. Price and
// Amount are decimal ether strings as typed by the caller.
type CommandRequest struct {
	Command  domain.Command
	TokenID  uint64
	Price    string         // list, purchase confirmation (optional)
	Amount   string         // bid
	Duration time.Duration  // auction length; zero means fixed-price listing
	To       common.Address // transfer target
}

// CommandEventSink receives every resolved command entry, e.g. for WebSocket
// push to connected clients.
type CommandEventSink interface {
	CommandResolved(entry domain.ActivityEntry)
}

// CommandService drives a command end to end: gate check, parameter
// validation, on-chain submission, activity bookkeeping, operator alerts,
// client event push, and the follow-up re-scan that folds the outcome back
// into the snapshots.
type CommandService struct {
	markets     *MarketService
	scans       *market.Manager
	reader      domain.BatchReader
	submitter   domain.CommandSubmitter
	activity    domain.ActivityStore
	notifier    *notify.Notifier
	events      CommandEventSink
	bounds      market.PriceBounds
	rescanDelay time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewCommandService wires a CommandService. notifier and events may be nil.
func NewCommandService(
	markets *MarketService,
	scans *market.Manager,
	reader domain.BatchReader,
	submitter domain.CommandSubmitter,
	activity domain.ActivityStore,
	notifier *notify.Notifier,
	events CommandEventSink,
	bounds market.PriceBounds,
	rescanDelay time.Duration,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		markets:     markets,
		scans:       scans,
		reader:      reader,
		submitter:   submitter,
		activity:    activity,
		notifier:    notifier,
		events:      events,
		bounds:      bounds,
		rescanDelay: rescanDelay,
		logger:      logger.With(slog.String("component", "command_service")),
		now:         time.Now,
	}
}

// Actor returns the address commands are signed as.
func (s *CommandService) Actor() common.Address {
	return s.submitter.Actor()
}

// Execute runs one command end to end and returns its resolved activity
// entry. Rejections before submission return ErrCommandNotAllowed or
// ErrInvalidCommand; an on-chain revert returns ErrCommandReverted with the
// entry recording the failure.
func (s *CommandService) Execute(ctx context.Context, req CommandRequest) (domain.ActivityEntry, error) {
	actor := s.submitter.Actor()

	permitted, err := s.markets.PermittedCommands(ctx, req.TokenID, actor)
	if err != nil {
		return domain.ActivityEntry{}, err
	}
	if !permitted.Has(req.Command) {
		return domain.ActivityEntry{}, fmt.Errorf("service: %s on token %d: %w",
			req.Command, req.TokenID, domain.ErrCommandNotAllowed)
	}

	amount, err := s.prepare(ctx, &req, actor)
	if err != nil {
		return domain.ActivityEntry{}, err
	}

	entry := domain.ActivityEntry{
		ID:        uuid.NewString(),
		Command:   req.Command,
		TokenID:   req.TokenID,
		Actor:     actor,
		AmountWei: amount,
		Status:    domain.ActivityPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.activity.Insert(ctx, entry); err != nil {
		return domain.ActivityEntry{}, err
	}

	receipt, submitErr := s.submit(ctx, req, amount)
	entry.TxHash = receipt.TxHash
	entry.BlockNumber = receipt.BlockNumber
	entry.UpdatedAt = s.now().UTC()

	if submitErr != nil {
		entry.Status = domain.ActivityFailed
		entry.Reason = submitErr.Error()
		if err := s.activity.UpdateStatus(ctx, entry.ID, entry.Status, receipt, entry.Reason); err != nil {
			s.logger.Error("recording failed command", slog.String("error", err.Error()))
		}
		if errors.Is(submitErr, domain.ErrCommandReverted) {
			s.notify(ctx, notify.EventCommandReverted, "Command reverted",
				fmt.Sprintf("%s on token %d reverted: %v", req.Command, req.TokenID, submitErr))
			// Reverts usually mean the snapshot is stale; refresh right away.
			s.scans.TriggerRescan(0)
		}
		s.publish(entry)
		return entry, submitErr
	}

	entry.Status = domain.ActivityConfirmed
	if err := s.activity.UpdateStatus(ctx, entry.ID, entry.Status, receipt, ""); err != nil {
		s.logger.Error("recording confirmed command", slog.String("error", err.Error()))
	}
	s.notify(ctx, notify.EventCommandConfirmed, "Command confirmed",
		fmt.Sprintf("%s on token %d mined in block %d", req.Command, req.TokenID, receipt.BlockNumber))

	// The ledger state changed; pick it up after a short settling delay.
	s.scans.TriggerRescan(s.rescanDelay)
	s.publish(entry)
	return entry, nil
}

// publish pushes the resolved entry to connected clients.
func (s *CommandService) publish(entry domain.ActivityEntry) {
	if s.events == nil {
		return
	}
	s.events.CommandResolved(entry)
}

// prepare validates command parameters and resolves the wei amount involved.
func (s *CommandService) prepare(ctx context.Context, req *CommandRequest, actor common.Address) (*big.Int, error) {
	switch req.Command {
	case domain.CommandList:
		wei, err := market.ParseEther(req.Price)
		if err != nil {
			return nil, fmt.Errorf("service: price %q: %w", req.Price, domain.ErrInvalidCommand)
		}
		if err := s.bounds.CheckPrice(wei); err != nil {
			return nil, err
		}
		if req.Duration != 0 {
			if err := market.CheckAuctionDuration(req.Duration); err != nil {
				return nil, err
			}
		}
		if err := s.ensureApproval(ctx, actor); err != nil {
			return nil, err
		}
		return wei, nil

	case domain.CommandBid:
		rec, err := s.markets.GetToken(ctx, req.TokenID, &actor)
		if err != nil {
			return nil, err
		}
		if rec.Status.Kind != domain.StatusInAuction {
			return nil, fmt.Errorf("service: token %d is not under auction: %w", req.TokenID, domain.ErrCommandNotAllowed)
		}
		check := market.ValidateBid(req.Amount, rec.Status.Auction.MinPrice, rec.Status.Auction.HighestBid)
		if !check.OK {
			return nil, fmt.Errorf("service: bid %q rejected (%s): %w", req.Amount, check.Reason, domain.ErrCommandRejected)
		}
		return check.Amount, nil

	case domain.CommandPurchase:
		rec, err := s.markets.GetToken(ctx, req.TokenID, &actor)
		if err != nil {
			return nil, err
		}
		if rec.Status.Kind != domain.StatusForSale {
			return nil, fmt.Errorf("service: token %d is not for sale: %w", req.TokenID, domain.ErrCommandNotAllowed)
		}
		return rec.Status.ForSale.Price, nil

	case domain.CommandTransfer:
		if req.To == domain.ZeroAddress {
			return nil, fmt.Errorf("service: transfer needs a target address: %w", domain.ErrInvalidCommand)
		}
		return nil, nil

	default:
		return nil, nil
	}
}

// ensureApproval grants the marketplace operator rights over the actor's
// tokens once, before the first listing.
func (s *CommandService) ensureApproval(ctx context.Context, actor common.Address) error {
	approved, err := s.reader.IsApprovedForAll(ctx, actor)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}
	s.logger.Info("granting marketplace approval", slog.String("actor", actor.Hex()))
	if _, err := s.submitter.SetApprovalForAll(ctx, true); err != nil {
		return fmt.Errorf("service: approving marketplace: %w", err)
	}
	return nil
}

func (s *CommandService) submit(ctx context.Context, req CommandRequest, amount *big.Int) (domain.Receipt, error) {
	switch req.Command {
	case domain.CommandList:
		if req.Duration != 0 {
			return s.submitter.StartAuction(ctx, req.TokenID, amount, req.Duration)
		}
		return s.submitter.ListForSale(ctx, req.TokenID, amount)
	case domain.CommandRevoke:
		return s.submitter.RemoveFromSale(ctx, req.TokenID)
	case domain.CommandBid:
		return s.submitter.PlaceBid(ctx, req.TokenID, amount)
	case domain.CommandPurchase:
		return s.submitter.Purchase(ctx, req.TokenID, amount)
	case domain.CommandClaim:
		return s.submitter.ClaimAuction(ctx, req.TokenID)
	case domain.CommandRefund:
		return s.submitter.ClaimRefund(ctx, req.TokenID)
	case domain.CommandTransfer:
		return s.submitter.Transfer(ctx, req.TokenID, req.To)
	default:
		return domain.Receipt{}, fmt.Errorf("service: unknown command %q: %w", req.Command, domain.ErrInvalidCommand)
	}
}

// ListActivity returns the command history, optionally filtered to one actor.
func (s *CommandService) ListActivity(ctx context.Context, actor string, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	if actor != "" {
		return s.activity.ListByActor(ctx, actor, opts)
	}
	return s.activity.List(ctx, opts)
}

func (s *CommandService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}
