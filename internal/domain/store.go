package domain

import (
	"context"
	"io"
	"time"
)

// ActivityStore persists the command/transaction history.
type ActivityStore interface {
	Insert(ctx context.Context, entry ActivityEntry) error
	UpdateStatus(ctx context.Context, id string, status ActivityStatus, receipt Receipt, reason string) error
	List(ctx context.Context, opts ListOpts) ([]ActivityEntry, error)
	ListByActor(ctx context.Context, actor string, opts ListOpts) ([]ActivityEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]ActivityEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged data to cold storage.
type Archiver interface {
	// ArchiveSnapshot uploads a completed scan's snapshot as JSON.
	ArchiveSnapshot(ctx context.Context, snap *Snapshot) (string, error)
	// ArchiveActivity uploads activity entries older than the cutoff and
	// returns the object path and the number of archived entries. Deletion
	// from the primary store is a separate, explicit step.
	ArchiveActivity(ctx context.Context, before time.Time) (string, int, error)
}
