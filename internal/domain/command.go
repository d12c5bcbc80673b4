package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Command is a marketplace action an actor may submit to the ledger.
type Command string

const (
	// CommandList covers putting an in-wallet token on the market, either as
	// a fixed-price listing or by starting an auction; both require the same
	// preconditions (actor owns the token, token not already listed).
	CommandList     Command = "list"
	CommandRevoke   Command = "revoke"
	CommandBid      Command = "bid"
	CommandPurchase Command = "purchase"
	CommandClaim    Command = "claim"
	CommandRefund   Command = "refund"
	CommandTransfer Command = "transfer"
)

// CommandSet is the set of commands currently permitted for an actor.
type CommandSet map[Command]bool

// Has reports whether cmd is in the set.
func (s CommandSet) Has(cmd Command) bool { return s[cmd] }

// Slice returns the commands in a stable order, for JSON responses.
func (s CommandSet) Slice() []Command {
	order := []Command{
		CommandList, CommandRevoke, CommandBid, CommandPurchase,
		CommandClaim, CommandRefund, CommandTransfer,
	}
	out := make([]Command, 0, len(s))
	for _, c := range order {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// Receipt summarizes the ledger's confirmation of a submitted command.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
}

// ActivityStatus is the lifecycle state of a recorded command submission.
type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "pending"
	ActivityConfirmed ActivityStatus = "confirmed"
	ActivityFailed    ActivityStatus = "failed"
)

// ActivityEntry is one row of the human-readable command history: a command
// submitted to the ledger together with its eventual outcome.
type ActivityEntry struct {
	ID          string
	Command     Command
	TokenID     uint64
	Actor       common.Address
	TxHash      common.Hash
	AmountWei   *big.Int // nil for non-value commands
	Status      ActivityStatus
	Reason      string // failure reason, empty on success
	BlockNumber uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
