package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/service"
)

// NftHandler serves the reconciled token views.
type NftHandler struct {
	markets *service.MarketService
	logger  *slog.Logger
}

// NewNftHandler creates an NftHandler.
func NewNftHandler(markets *service.MarketService, logger *slog.Logger) *NftHandler {
	return &NftHandler{markets: markets, logger: logger}
}

// ListOwned returns a page of the requesting actor's holdings.
// GET /api/nfts/owned?actor=0x…&limit=&offset=
func (h *NftHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	actor, err := actorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if actor == nil {
		writeError(w, http.StatusBadRequest, "actor query parameter is required")
		return
	}
	opts := parseListOpts(r)

	page, err := h.markets.ListOwned(r.Context(), *actor, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageDTO(page.Records, page.Total, opts, page.TakenAt, time.Now()))
}

// ListMarketplace returns a page of active listings and auctions.
// GET /api/nfts/marketplace?filter=sale|auction&limit=&offset=
func (h *NftHandler) ListMarketplace(w http.ResponseWriter, r *http.Request) {
	filter := domain.MarketFilter(r.URL.Query().Get("filter"))
	switch filter {
	case domain.FilterAll, domain.FilterSale, domain.FilterAuction:
	default:
		writeError(w, http.StatusBadRequest, "filter must be empty, \"sale\", or \"auction\"")
		return
	}
	opts := parseListOpts(r)

	page, err := h.markets.ListMarketplace(r.Context(), filter, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageDTO(page.Records, page.Total, opts, page.TakenAt, time.Now()))
}

// GetToken returns one token's reconciled record.
// GET /api/nfts/{tokenId}?actor=0x…
func (h *NftHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, err := actorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.markets.GetToken(r.Context(), tokenID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec, time.Now()))
}

// PermittedCommands returns which commands the actor may submit for a token.
// GET /api/nfts/{tokenId}/commands?actor=0x…
func (h *NftHandler) PermittedCommands(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, err := actorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if actor == nil {
		writeError(w, http.StatusBadRequest, "actor query parameter is required")
		return
	}

	permitted, err := h.markets.PermittedCommands(r.Context(), tokenID, *actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token_id": tokenID,
		"actor":    actor.Hex(),
		"commands": permitted.Slice(),
	})
}

// validateBidRequest is the body of a bid pre-check.
type validateBidRequest struct {
	Amount string `json:"amount"` // decimal ether
	Actor  string `json:"actor,omitempty"`
}

// ValidateBid checks a proposed bid against the live auction state without
// submitting anything.
// POST /api/nfts/{tokenId}/validate-bid
func (h *NftHandler) ValidateBid(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req validateBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor, err := actorFromString(req.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	check, err := h.markets.ValidateBid(r.Context(), tokenID, req.Amount, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{
		"token_id": tokenID,
		"ok":       check.OK,
	}
	if check.OK {
		body["amount_wei"] = check.Amount.String()
	} else {
		body["reason"] = check.Reason
		if check.Bound != nil {
			body["bound_wei"] = check.Bound.String()
		}
	}
	writeJSON(w, http.StatusOK, body)
}
