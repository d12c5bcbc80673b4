package handler

import (
	"log/slog"
	"net/http"

	"github.com/scimarket/scimarketd/internal/service"
)

// ScanHandler exposes the scan loops' status and a manual trigger.
type ScanHandler struct {
	markets *service.MarketService
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(markets *service.MarketService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{markets: markets, logger: logger}
}

// Status reports every live scan loop.
// GET /api/scan/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses := h.markets.ScanStatus()
	out := make([]map[string]any, 0, len(statuses))
	for _, st := range statuses {
		entry := map[string]any{
			"view":  st.View.Key(),
			"state": st.State,
		}
		if !st.LastScan.IsZero() {
			entry["last_scan"] = st.LastScan
		}
		if st.LastError != "" {
			entry["last_error"] = st.LastError
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

// Trigger requests an immediate re-scan of every live view.
// POST /api/scan/trigger
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.markets.TriggerScan()
	h.logger.Info("manual scan triggered", slog.String("remote_addr", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
