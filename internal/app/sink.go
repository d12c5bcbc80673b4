package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/notify"
	"github.com/scimarket/scimarketd/internal/server/ws"
)

// alertingSink forwards scan events to the WebSocket hub and raises an
// operator alert when a scan loop fails.
type alertingSink struct {
	hub      *ws.Hub
	notifier *notify.Notifier
	logger   *slog.Logger
}

func (s *alertingSink) ScanStatusChanged(status domain.ScanStatus) {
	s.hub.ScanStatusChanged(status)
	if status.State != domain.ScanFailed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.notifier.Notify(ctx, notify.EventScanFailed, "Scan failed",
		fmt.Sprintf("view %s: %s", status.View.Key(), status.LastError))
	if err != nil {
		s.logger.Warn("scan failure alert not delivered", slog.String("error", err.Error()))
	}
}

func (s *alertingSink) SnapshotPublished(snap *domain.Snapshot) {
	s.hub.SnapshotPublished(snap)
}
