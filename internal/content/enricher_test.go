package content

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimarket/scimarketd/internal/domain"
)

type stubRegistry struct {
	calls    atomic.Int64
	contents map[uint64]domain.RegistryContent
}

func (r *stubRegistry) Content(ctx context.Context, contentID uint64) (domain.RegistryContent, error) {
	r.calls.Add(1)
	c, ok := r.contents[contentID]
	if !ok {
		return domain.RegistryContent{}, errors.New("execution reverted")
	}
	return c, nil
}

type stubResolver struct {
	metas map[string]domain.ContentMeta
}

func (r *stubResolver) Resolve(ctx context.Context, pointer string) (domain.ContentMeta, error) {
	m, ok := r.metas[pointer]
	if !ok {
		return domain.ContentMeta{}, domain.ErrMetadataUnavail
	}
	return m, nil
}

func TestEnrichFillsDescriptiveFields(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{contents: map[uint64]domain.RegistryContent{
		1: {Title: "Dark Matter Survey", Description: "From the registry", Author: common.HexToAddress("0xa1")},
	}}
	resolver := &stubResolver{metas: map[string]domain.ContentMeta{
		"ipfs://QmA": {Name: "fallback name", Description: "fallback desc", ImageURL: "https://gw/QmImg"},
	}}
	e := NewEnricher(registry, resolver, 2, testLogger())

	records := e.Enrich(context.Background(), []domain.NftRecord{
		{TokenID: 1, ContentID: 1, MetadataURI: "ipfs://QmA"},
	})
	require.Len(t, records, 1)

	// Registry fields win; the metadata document only supplies the image.
	assert.Equal(t, "Dark Matter Survey", records[0].Title)
	assert.Equal(t, "From the registry", records[0].Description)
	assert.Equal(t, "https://gw/QmImg", records[0].ImageURL)
}

func TestEnrichFallsBackToMetadataDocument(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{contents: map[uint64]domain.RegistryContent{}}
	resolver := &stubResolver{metas: map[string]domain.ContentMeta{
		"ipfs://QmB": {Name: "doc name", Description: "doc desc"},
	}}
	e := NewEnricher(registry, resolver, 2, testLogger())

	records := e.Enrich(context.Background(), []domain.NftRecord{
		{TokenID: 2, ContentID: 9, MetadataURI: "ipfs://QmB"},
	})
	require.Len(t, records, 1)
	assert.Equal(t, "doc name", records[0].Title)
	assert.Equal(t, "doc desc", records[0].Description)
}

func TestEnrichSurvivesTotalFailure(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{contents: map[uint64]domain.RegistryContent{}}
	resolver := &stubResolver{}
	e := NewEnricher(registry, resolver, 2, testLogger())

	records := e.Enrich(context.Background(), []domain.NftRecord{
		{TokenID: 3, ContentID: 7, MetadataURI: "ipfs://QmGone"},
		{TokenID: 4},
	})
	require.Len(t, records, 2)
	assert.Empty(t, records[0].Title)
	assert.Empty(t, records[1].Title)
}

func TestEnrichMemoizesRegistryLookups(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{contents: map[uint64]domain.RegistryContent{
		5: {Title: "shared work"},
	}}
	e := NewEnricher(registry, &stubResolver{}, 1, testLogger())

	records := e.Enrich(context.Background(), []domain.NftRecord{
		{TokenID: 1, ContentID: 5},
		{TokenID: 2, ContentID: 5},
		{TokenID: 3, ContentID: 5},
	})
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, "shared work", rec.Title)
	}
	assert.Equal(t, int64(1), registry.calls.Load())
}
