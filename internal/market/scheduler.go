package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
)

// Enricher fills best-effort descriptive fields on freshly reconciled
// records. Implementations must never fail the scan: unresolvable metadata
// simply leaves fields empty.
type Enricher interface {
	Enrich(ctx context.Context, records []domain.NftRecord) []domain.NftRecord
}

// EventSink receives scan lifecycle events, e.g. for WebSocket broadcast.
type EventSink interface {
	ScanStatusChanged(status domain.ScanStatus)
	SnapshotPublished(snap *domain.Snapshot)
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) ScanStatusChanged(domain.ScanStatus) {}
func (nopSink) SnapshotPublished(*domain.Snapshot)  {}

// ScannerConfig holds the per-view scan parameters.
type ScannerConfig struct {
	Interval  time.Duration
	MaxTokens int
}

// Scanner owns the scan pipeline and current snapshot for one view. The
// snapshot is the only shared mutable state; it is replaced wholesale via an
// atomic pointer swap, so readers never observe a partially updated set of
// records. At most one scan runs at a time per view: triggers arriving while
// a scan is in flight are coalesced into a single queued follow-up.
type Scanner struct {
	view      domain.View
	reader    domain.BatchReader
	reconcile *Reconciler
	enrich    Enricher
	cfg       ScannerConfig
	sink      EventSink
	logger    *slog.Logger
	now       func() time.Time

	snapshot atomic.Pointer[domain.Snapshot]
	trigger  chan struct{}

	// scanMu serialises Scan: the Run loop and direct callers may race, and
	// an older scan's result must never replace a newer snapshot.
	scanMu sync.Mutex

	mu     sync.Mutex
	status domain.ScanStatus
}

// NewScanner creates a Scanner for the given view. sink may be nil.
func NewScanner(
	view domain.View,
	reader domain.BatchReader,
	reconcile *Reconciler,
	enrich Enricher,
	cfg ScannerConfig,
	sink EventSink,
	logger *slog.Logger,
) *Scanner {
	if sink == nil {
		sink = nopSink{}
	}
	return &Scanner{
		view:      view,
		reader:    reader,
		reconcile: reconcile,
		enrich:    enrich,
		cfg:       cfg,
		sink:      sink,
		logger:    logger.With(slog.String("component", "scanner"), slog.String("view", view.Key())),
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
		status:    domain.ScanStatus{View: view, State: domain.ScanIdle},
	}
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful scan.
func (s *Scanner) Snapshot() *domain.Snapshot {
	return s.snapshot.Load()
}

// Status returns the scan loop's externally observable state.
func (s *Scanner) Status() domain.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Trigger requests an early re-scan after the given delay. Requests landing
// while a scan is running are queued (never run concurrently) and collapsed
// into one.
func (s *Scanner) Trigger(delay time.Duration) {
	fire := func() {
		select {
		case s.trigger <- struct{}{}:
		default: // a re-scan is already queued
		}
	}
	if delay <= 0 {
		fire()
		return
	}
	time.AfterFunc(delay, fire)
}

// Run executes Scan on the configured interval and on explicit triggers until
// ctx is cancelled. A failed scan keeps the last good snapshot and waits for
// the next tick.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.Scan(ctx); err != nil {
		s.logger.Error("initial scan failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("scheduled scan failed", slog.String("error", err.Error()))
			}
		case <-s.trigger:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("triggered scan failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Scan performs one full cycle: batched reads, reconciliation, enrichment,
// snapshot swap. On a batch-level failure the previous snapshot is retained
// and the scanner reports ScanFailed until the next successful scan. Scans
// for one view never overlap; a second caller blocks until the first cycle
// has published.
func (s *Scanner) Scan(ctx context.Context) error {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	s.setState(domain.ScanScanning, "")
	start := s.now()

	snap, err := s.scanOnce(ctx)
	if err != nil {
		s.setState(domain.ScanFailed, err.Error())
		return err
	}

	// Publish: a single pointer swap, so consumers switch between complete
	// snapshots and never see a half-built one.
	s.snapshot.Store(snap)

	s.mu.Lock()
	s.status.State = domain.ScanIdle
	s.status.LastScan = snap.TakenAt
	s.status.LastError = ""
	status := s.status
	s.mu.Unlock()
	s.sink.ScanStatusChanged(status)
	s.sink.SnapshotPublished(snap)

	s.logger.Info("scan complete",
		slog.Int("records", len(snap.Records)),
		slog.Uint64("total_supply", snap.TotalSupply),
		slog.Duration("elapsed", s.now().Sub(start)),
	)
	return nil
}

func (s *Scanner) scanOnce(ctx context.Context) (*domain.Snapshot, error) {
	supply, err := s.reader.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner: total supply: %w", err)
	}

	// Token identifiers are 1..totalSupply, capped at the configured width.
	n := supply
	if s.cfg.MaxTokens > 0 && n > uint64(s.cfg.MaxTokens) {
		n = uint64(s.cfg.MaxTokens)
	}
	tokenIDs := make([]uint64, 0, n)
	for id := uint64(1); id <= n; id++ {
		tokenIDs = append(tokenIDs, id)
	}

	var bidder *common.Address
	if s.view.Kind == domain.ViewOwned {
		actor := s.view.Actor
		bidder = &actor
	}

	facts, err := s.reader.ReadTokens(ctx, tokenIDs, bidder)
	if err != nil {
		return nil, fmt.Errorf("scanner: batch read: %w", err)
	}

	records := s.reconcile.Reconcile(s.view, facts)
	if s.enrich != nil {
		records = s.enrich.Enrich(ctx, records)
	}

	return domain.NewSnapshot(s.view, records, supply, s.now().UTC()), nil
}

func (s *Scanner) setState(state domain.ScanState, lastErr string) {
	s.mu.Lock()
	s.status.State = state
	if lastErr != "" {
		s.status.LastError = lastErr
	}
	status := s.status
	s.mu.Unlock()
	s.sink.ScanStatusChanged(status)
}
