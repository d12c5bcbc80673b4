package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scimarket/scimarketd/internal/domain"
)

// ActivityArchiveStore is the slice of the activity store the archiver reads.
type ActivityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityEntry, error)
}

// Archiver implements domain.Archiver: completed snapshots go up as JSON
// documents, aged activity entries as JSONL. Deleting archived rows from the
// primary store is a separate, explicit step taken after the upload is
// verified.
type Archiver struct {
	writer   domain.BlobWriter
	activity ActivityArchiveStore
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, activity ActivityArchiveStore) *Archiver {
	return &Archiver{writer: writer, activity: activity}
}

// snapshotDoc is the archived form of a scan snapshot.
type snapshotDoc struct {
	View        string             `json:"view"`
	TakenAt     time.Time          `json:"taken_at"`
	TotalSupply uint64             `json:"total_supply"`
	Records     []domain.NftRecord `json:"records"`
}

// ArchiveSnapshot uploads snap as JSON under
// archive/snapshots/<view>/<timestamp>.json and returns the object path.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	doc := snapshotDoc{
		View:        snap.View.Key(),
		TakenAt:     snap.TakenAt,
		TotalSupply: snap.TotalSupply,
		Records:     snap.Records,
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive snapshot marshal: %w", err)
	}

	path := fmt.Sprintf("archive/snapshots/%s/%s.json",
		snap.View.Key(), snap.TakenAt.UTC().Format("2006-01-02T15-04-05"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive snapshot upload: %w", err)
	}
	return path, nil
}

// ArchiveActivity uploads activity entries older than the cutoff as JSONL
// under archive/activity/YYYY-MM.jsonl, returning the path and entry count.
// A cutoff with no matching entries uploads nothing.
func (a *Archiver) ArchiveActivity(ctx context.Context, before time.Time) (string, int, error) {
	entries, err := a.activity.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive activity query: %w", err)
	}
	if len(entries) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return "", 0, fmt.Errorf("s3blob: archive activity marshal: %w", err)
		}
	}

	path := fmt.Sprintf("archive/activity/%s.jsonl", before.UTC().Format("2006-01"))
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return "", 0, fmt.Errorf("s3blob: archive activity upload: %w", err)
	}
	return path, len(entries), nil
}
