// Package handler holds the HTTP handlers for the marketplace API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
)

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrCommandNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidCommand), errors.Is(err, domain.ErrCommandRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrLedgerUnreachable), errors.Is(err, domain.ErrFactUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseListOpts extracts pagination parameters. Defaults: limit=50, max 500.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return domain.ListOpts{Limit: limit, Offset: offset}
}

// tokenIDParam parses the {tokenId} path segment.
func tokenIDParam(r *http.Request) (uint64, error) {
	raw := r.PathValue("tokenId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid token id")
	}
	return id, nil
}

// actorFromString parses an optional address string from a request body.
func actorFromString(raw string) (*common.Address, error) {
	if raw == "" {
		return nil, nil
	}
	if !common.IsHexAddress(raw) {
		return nil, errors.New("invalid actor address")
	}
	addr := common.HexToAddress(raw)
	return &addr, nil
}

// actorParam parses an optional ?actor= query address.
func actorParam(r *http.Request) (*common.Address, error) {
	raw := r.URL.Query().Get("actor")
	if raw == "" {
		return nil, nil
	}
	if !common.IsHexAddress(raw) {
		return nil, errors.New("invalid actor address")
	}
	addr := common.HexToAddress(raw)
	return &addr, nil
}
