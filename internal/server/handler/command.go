package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/service"
)

// CommandHandler executes marketplace commands through the service wallet.
type CommandHandler struct {
	commands *service.CommandService
	logger   *slog.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(commands *service.CommandService, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{commands: commands, logger: logger}
}

// commandRequest is the body of a command submission.
type commandRequest struct {
	TokenID  uint64 `json:"token_id"`
	Price    string `json:"price,omitempty"`    // decimal ether; list
	Amount   string `json:"amount,omitempty"`   // decimal ether; bid
	Duration string `json:"duration,omitempty"` // Go duration; list-as-auction
	To       string `json:"to,omitempty"`       // transfer target
}

// Execute runs the named command end to end and returns its activity entry.
// POST /api/commands/{name}
func (h *CommandHandler) Execute(w http.ResponseWriter, r *http.Request) {
	name := domain.Command(r.PathValue("name"))
	switch name {
	case domain.CommandList, domain.CommandRevoke, domain.CommandBid,
		domain.CommandPurchase, domain.CommandClaim, domain.CommandRefund,
		domain.CommandTransfer:
	default:
		writeError(w, http.StatusNotFound, "unknown command")
		return
	}

	var body commandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.TokenID == 0 {
		writeError(w, http.StatusBadRequest, "token_id is required")
		return
	}

	req := service.CommandRequest{
		Command: name,
		TokenID: body.TokenID,
		Price:   body.Price,
		Amount:  body.Amount,
	}
	if body.Duration != "" {
		d, err := time.ParseDuration(body.Duration)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		req.Duration = d
	}
	if body.To != "" {
		if !common.IsHexAddress(body.To) {
			writeError(w, http.StatusBadRequest, "invalid target address")
			return
		}
		req.To = common.HexToAddress(body.To)
	}

	entry, err := h.commands.Execute(r.Context(), req)
	if err != nil && !errors.Is(err, domain.ErrCommandReverted) {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if errors.Is(err, domain.ErrCommandReverted) {
		// The submission itself worked; the entry carries the revert.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toActivityDTO(entry))
}
