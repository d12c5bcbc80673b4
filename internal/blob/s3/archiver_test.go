package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimarket/scimarketd/internal/domain"
)

// memWriter captures uploads in memory.
type memWriter struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (w *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = buf
	w.types[path] = contentType
	return nil
}

type stubActivitySource struct {
	entries []domain.ActivityEntry
	err     error
}

func (s *stubActivitySource) ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.ActivityEntry
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestArchiveSnapshot(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	a := NewArchiver(writer, &stubActivitySource{})

	takenAt := time.Date(2026, 8, 30, 14, 15, 16, 0, time.UTC)
	snap := domain.NewSnapshot(domain.PublicView(), []domain.NftRecord{
		{TokenID: 1, Status: domain.Status{Kind: domain.StatusInWallet}},
	}, 7, takenAt)

	path, err := a.ArchiveSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "archive/snapshots/public/2026-08-30T14-15-16.json", path)
	assert.Equal(t, "application/json", writer.types[path])

	var doc map[string]any
	require.NoError(t, json.Unmarshal(writer.objects[path], &doc))
	assert.Equal(t, "public", doc["view"])
	assert.Equal(t, float64(7), doc["total_supply"])
}

func TestArchiveActivityWritesJSONL(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	writer := newMemWriter()
	a := NewArchiver(writer, &stubActivitySource{entries: []domain.ActivityEntry{
		{ID: "old-1", Command: domain.CommandBid, CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: "old-2", Command: domain.CommandClaim, CreatedAt: cutoff.Add(-24 * time.Hour)},
		{ID: "fresh", Command: domain.CommandList, CreatedAt: cutoff.Add(time.Hour)},
	}})

	path, count, err := a.ArchiveActivity(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, "archive/activity/2026-08.jsonl", path)
	assert.Equal(t, 2, count)
	assert.Equal(t, "application/x-ndjson", writer.types[path])

	// One JSON document per line, fresh entries excluded.
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(writer.objects[path]))
	for scanner.Scan() {
		var entry domain.ActivityEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		ids = append(ids, entry.ID)
	}
	assert.Equal(t, []string{"old-1", "old-2"}, ids)
}

func TestArchiveActivityNothingToDo(t *testing.T) {
	t.Parallel()

	writer := newMemWriter()
	a := NewArchiver(writer, &stubActivitySource{})

	path, count, err := a.ArchiveActivity(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, count)
	assert.Empty(t, writer.objects)
}

func TestArchiveActivityPropagatesFailures(t *testing.T) {
	t.Parallel()

	a := NewArchiver(newMemWriter(), &stubActivitySource{err: errors.New("db down")})
	_, _, err := a.ArchiveActivity(context.Background(), time.Now())
	assert.Error(t, err)

	broken := newMemWriter()
	broken.err = errors.New("bucket gone")
	a = NewArchiver(broken, &stubActivitySource{entries: []domain.ActivityEntry{
		{ID: "old", CreatedAt: time.Now().Add(-time.Hour)},
	}})
	_, _, err = a.ArchiveActivity(context.Background(), time.Now())
	assert.Error(t, err)
}
