package content

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scimarket/scimarketd/internal/domain"
)

// RegistryReader is the slice of the ledger read channel the enricher needs.
type RegistryReader interface {
	Content(ctx context.Context, contentID uint64) (domain.RegistryContent, error)
}

// Enricher fills title, description, and image fields on reconciled records
// from the content registry and the off-chain metadata document. Enrichment
// is best-effort with bounded concurrency; records whose lookups fail keep
// their empty fields.
type Enricher struct {
	registry    RegistryReader
	resolver    domain.ContentResolver
	concurrency int
	logger      *slog.Logger
}

// NewEnricher creates an Enricher. concurrency <= 0 falls back to 4.
func NewEnricher(registry RegistryReader, resolver domain.ContentResolver, concurrency int, logger *slog.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Enricher{
		registry:    registry,
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "enricher")),
	}
}

// Enrich mutates and returns records with descriptive fields filled in.
func (e *Enricher) Enrich(ctx context.Context, records []domain.NftRecord) []domain.NftRecord {
	// Copies of the same work share a contentID, so registry lookups are
	// memoized for the duration of one pass.
	var regMu sync.Mutex
	regCache := map[uint64]*domain.RegistryContent{}
	lookupContent := func(id uint64) *domain.RegistryContent {
		regMu.Lock()
		cached, seen := regCache[id]
		regMu.Unlock()
		if seen {
			return cached
		}
		var entry *domain.RegistryContent
		if got, err := e.registry.Content(ctx, id); err == nil {
			entry = &got
		} else {
			e.logger.Debug("registry lookup failed",
				slog.Uint64("content_id", id),
				slog.String("error", err.Error()),
			)
		}
		regMu.Lock()
		regCache[id] = entry
		regMu.Unlock()
		return entry
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range records {
		g.Go(func() error {
			rec := &records[i]
			if rec.ContentID != 0 {
				if reg := lookupContent(rec.ContentID); reg != nil {
					rec.Title = reg.Title
					rec.Description = reg.Description
				}
			}
			if rec.MetadataURI != "" {
				if meta, err := e.resolver.Resolve(ctx, rec.MetadataURI); err == nil {
					if rec.Title == "" {
						rec.Title = meta.Name
					}
					if rec.Description == "" {
						rec.Description = meta.Description
					}
					rec.ImageURL = meta.ImageURL
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return records
}
