// Package content resolves off-chain token metadata through an IPFS gateway
// and enriches reconciled records with it.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scimarket/scimarketd/internal/domain"
)

// maxMetadataBytes caps the size of a metadata document a gateway may feed us.
const maxMetadataBytes = 1 << 20

// metadataJSON is the subset of the ERC-721 metadata schema we read.
type metadataJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// GatewayResolver fetches metadata documents over HTTP through a configured
// IPFS gateway, with a cache in front. All failures are reported as
// ErrMetadataUnavail so callers degrade instead of failing a scan.
type GatewayResolver struct {
	gatewayURL string
	client     *http.Client
	cache      domain.ContentCache
	logger     *slog.Logger
}

var _ domain.ContentResolver = (*GatewayResolver)(nil)

// NewGatewayResolver creates a resolver. cache may be nil to disable
// memoization; gatewayURL should end at the CID mount point, e.g.
// "https://ipfs.io/ipfs/".
func NewGatewayResolver(gatewayURL string, timeout time.Duration, cache domain.ContentCache, logger *slog.Logger) *GatewayResolver {
	if !strings.HasSuffix(gatewayURL, "/") {
		gatewayURL += "/"
	}
	return &GatewayResolver{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger.With(slog.String("component", "content_resolver")),
	}
}

// Resolve fetches and parses the metadata document behind pointer.
func (r *GatewayResolver) Resolve(ctx context.Context, pointer string) (domain.ContentMeta, error) {
	if pointer == "" {
		return domain.ContentMeta{}, fmt.Errorf("content: empty pointer: %w", domain.ErrMetadataUnavail)
	}

	if r.cache != nil {
		if meta, err := r.cache.Get(ctx, pointer); err == nil {
			return meta, nil
		}
	}

	url := r.toGatewayURL(pointer)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ContentMeta{}, fmt.Errorf("content: building request: %w", domain.ErrMetadataUnavail)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.ContentMeta{}, fmt.Errorf("content: fetching %s: %w: %v", pointer, domain.ErrMetadataUnavail, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ContentMeta{}, fmt.Errorf("content: fetching %s: status %d: %w", pointer, resp.StatusCode, domain.ErrMetadataUnavail)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return domain.ContentMeta{}, fmt.Errorf("content: reading %s: %w: %v", pointer, domain.ErrMetadataUnavail, err)
	}
	var doc metadataJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.ContentMeta{}, fmt.Errorf("content: parsing %s: %w: %v", pointer, domain.ErrMetadataUnavail, err)
	}

	meta := domain.ContentMeta{
		Name:        doc.Name,
		Description: doc.Description,
		ImageURL:    r.toGatewayURL(doc.Image),
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, pointer, meta); err != nil {
			r.logger.Debug("cache set failed", slog.String("error", err.Error()))
		}
	}
	return meta, nil
}

// toGatewayURL rewrites ipfs:// pointers and bare CIDs onto the gateway;
// http(s) URLs pass through untouched.
func (r *GatewayResolver) toGatewayURL(pointer string) string {
	switch {
	case pointer == "":
		return ""
	case strings.HasPrefix(pointer, "ipfs://"):
		return r.gatewayURL + strings.TrimPrefix(pointer, "ipfs://")
	case strings.HasPrefix(pointer, "http://"), strings.HasPrefix(pointer, "https://"):
		return pointer
	default:
		return r.gatewayURL + pointer
	}
}
