package handler

import (
	"log/slog"
	"net/http"

	"github.com/scimarket/scimarketd/internal/service"
)

// ActivityHandler serves the command history.
type ActivityHandler struct {
	commands *service.CommandService
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(commands *service.CommandService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{commands: commands, logger: logger}
}

// List returns the command history, newest first.
// GET /api/activity?actor=0x…&limit=&offset=
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actorHex := ""
	if actor != nil {
		actorHex = actor.Hex()
	}
	opts := parseListOpts(r)

	entries, err := h.commands.ListActivity(r.Context(), actorHex, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]activityDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toActivityDTO(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
