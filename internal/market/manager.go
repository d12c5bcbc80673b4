package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scimarket/scimarketd/internal/domain"
)

// ManagerConfig holds refresh parameters for the public view and the
// per-actor owned views.
type ManagerConfig struct {
	PublicInterval time.Duration
	OwnedInterval  time.Duration
	MaxTokens      int
	OwnedIdleTTL   time.Duration
}

type ownedEntry struct {
	scanner    *Scanner
	cancel     context.CancelFunc
	lastAccess time.Time
}

// Manager runs the public-view scanner continuously and materialises
// owned-view scanners on demand, one per actor address. Owned scanners that
// go unqueried for OwnedIdleTTL are stopped and evicted by a janitor loop.
type Manager struct {
	reader    domain.BatchReader
	reconcile *Reconciler
	enrich    Enricher
	cfg       ManagerConfig
	sink      EventSink
	logger    *slog.Logger

	public *Scanner

	mu      sync.Mutex
	owned   map[common.Address]*ownedEntry
	baseCtx context.Context
}

// NewManager wires a Manager. sink may be nil.
func NewManager(
	reader domain.BatchReader,
	reconcile *Reconciler,
	enrich Enricher,
	cfg ManagerConfig,
	sink EventSink,
	logger *slog.Logger,
) *Manager {
	m := &Manager{
		reader:    reader,
		reconcile: reconcile,
		enrich:    enrich,
		cfg:       cfg,
		sink:      sink,
		logger:    logger.With(slog.String("component", "scan_manager")),
		owned:     map[common.Address]*ownedEntry{},
	}
	m.public = NewScanner(
		domain.PublicView(),
		reader, reconcile, enrich,
		ScannerConfig{Interval: cfg.PublicInterval, MaxTokens: cfg.MaxTokens},
		sink, logger,
	)
	return m
}

// Run blocks until ctx is cancelled, driving the public scan loop and the
// owned-scanner janitor. Owned scanners started later attach to ctx.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.public.Run(ctx) })
	g.Go(func() error { return m.janitor(ctx) })
	return g.Wait()
}

// Public returns the latest public-view snapshot, or nil before the first
// successful scan.
func (m *Manager) Public() *domain.Snapshot {
	return m.public.Snapshot()
}

// Owned returns the owned-view snapshot for actor, starting a dedicated
// scanner on first use. The first call for an actor performs one synchronous
// scan so the caller never sees an empty placeholder.
func (m *Manager) Owned(ctx context.Context, actor common.Address) (*domain.Snapshot, error) {
	m.mu.Lock()
	if m.baseCtx == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("market: scan manager not running")
	}
	entry, ok := m.owned[actor]
	if ok {
		entry.lastAccess = time.Now()
		m.mu.Unlock()
		if snap := entry.scanner.Snapshot(); snap != nil {
			return snap, nil
		}
		// First scan still in flight or failed; fall through to a direct one.
		if err := entry.scanner.Scan(ctx); err != nil {
			return nil, err
		}
		return entry.scanner.Snapshot(), nil
	}

	scanner := NewScanner(
		domain.OwnedView(actor),
		m.reader, m.reconcile, m.enrich,
		ScannerConfig{Interval: m.cfg.OwnedInterval, MaxTokens: m.cfg.MaxTokens},
		m.sink, m.logger,
	)
	loopCtx, cancel := context.WithCancel(m.baseCtx)
	m.owned[actor] = &ownedEntry{scanner: scanner, cancel: cancel, lastAccess: time.Now()}
	m.mu.Unlock()

	// Synchronous first scan on the caller's context, then the background
	// loop takes over on its own interval.
	if err := scanner.Scan(ctx); err != nil {
		m.logger.Warn("first owned scan failed",
			slog.String("actor", actor.Hex()),
			slog.String("error", err.Error()),
		)
	}
	go func() {
		_ = scanner.Run(loopCtx)
	}()

	snap := scanner.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("market: owned scan for %s: %w", actor.Hex(), domain.ErrLedgerUnreachable)
	}
	return snap, nil
}

// TriggerRescan schedules an early re-scan of the public view and every live
// owned view, typically after a submitted command confirms.
func (m *Manager) TriggerRescan(delay time.Duration) {
	m.public.Trigger(delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.owned {
		entry.scanner.Trigger(delay)
	}
}

// Status reports the state of the public scanner and all live owned scanners.
func (m *Manager) Status() []domain.ScanStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScanStatus, 0, 1+len(m.owned))
	out = append(out, m.public.Status())
	for _, entry := range m.owned {
		out = append(out, entry.scanner.Status())
	}
	return out
}

// StatusFor returns the scan status for one view key ("public" or
// "owned:0x…"). Unknown keys return ErrNotFound.
func (m *Manager) StatusFor(key string) (domain.ScanStatus, error) {
	if key == domain.PublicView().Key() {
		return m.public.Status(), nil
	}
	if addr, ok := strings.CutPrefix(key, "owned:"); ok && common.IsHexAddress(addr) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if entry, ok := m.owned[common.HexToAddress(addr)]; ok {
			return entry.scanner.Status(), nil
		}
	}
	return domain.ScanStatus{}, fmt.Errorf("market: scan view %q: %w", key, domain.ErrNotFound)
}

func (m *Manager) janitor(ctx context.Context) error {
	if m.cfg.OwnedIdleTTL <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(m.cfg.OwnedIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *Manager) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for actor, entry := range m.owned {
		if now.Sub(entry.lastAccess) >= m.cfg.OwnedIdleTTL {
			entry.cancel()
			delete(m.owned, actor)
			m.logger.Info("evicted idle owned scanner", slog.String("actor", actor.Hex()))
		}
	}
}
