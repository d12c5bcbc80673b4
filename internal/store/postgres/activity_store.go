package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scimarket/scimarketd/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

var _ domain.ActivityStore = (*ActivityStore)(nil)

// NewActivityStore creates an ActivityStore backed by the given pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

const activityColumns = `id, command, token_id, actor, tx_hash, amount_wei, status, reason, block_number, created_at, updated_at`

// Insert records a freshly submitted command.
func (s *ActivityStore) Insert(ctx context.Context, entry domain.ActivityEntry) error {
	var amount *string
	if entry.AmountWei != nil {
		v := entry.AmountWei.String()
		amount = &v
	}
	const query = `
		INSERT INTO activity (id, command, token_id, actor, tx_hash, amount_wei, status, reason, block_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	_, err := s.pool.Exec(ctx, query,
		entry.ID, string(entry.Command), int64(entry.TokenID), entry.Actor.Hex(),
		entry.TxHash.Hex(), amount, string(entry.Status), entry.Reason,
		int64(entry.BlockNumber), entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert activity %s: %w", entry.ID, err)
	}
	return nil
}

// UpdateStatus resolves a pending entry with its outcome.
func (s *ActivityStore) UpdateStatus(ctx context.Context, id string, status domain.ActivityStatus, receipt domain.Receipt, reason string) error {
	const query = `
		UPDATE activity
		SET status = $2, tx_hash = $3, block_number = $4, reason = $5, updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		id, string(status), receipt.TxHash.Hex(), int64(receipt.BlockNumber), reason,
	)
	if err != nil {
		return fmt.Errorf("postgres: update activity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: activity %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns entries newest first with pagination.
func (s *ActivityStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM activity ORDER BY created_at DESC`, activityColumns)
	args := []any{}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.queryEntries(ctx, query, args...)
}

// ListByActor returns one actor's entries newest first with pagination.
func (s *ActivityStore) ListByActor(ctx context.Context, actor string, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM activity WHERE actor = $1 ORDER BY created_at DESC`, activityColumns)
	args := []any{common.HexToAddress(actor).Hex()}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}
	return s.queryEntries(ctx, query, args...)
}

// ListBefore returns all entries created before the cutoff, oldest first.
func (s *ActivityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM activity WHERE created_at < $1 ORDER BY created_at ASC`, activityColumns)
	return s.queryEntries(ctx, query, before.UTC())
}

// DeleteBefore removes entries created before the cutoff, returning the count.
func (s *ActivityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM activity WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres: delete activity before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func (s *ActivityStore) queryEntries(ctx context.Context, query string, args ...any) ([]domain.ActivityEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query activity: %w", err)
	}
	defer rows.Close()

	entries := []domain.ActivityEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate activity: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (domain.ActivityEntry, error) {
	var (
		entry       domain.ActivityEntry
		command     string
		tokenID     int64
		actor       string
		txHash      string
		amount      *string
		status      string
		blockNumber int64
	)
	err := row.Scan(&entry.ID, &command, &tokenID, &actor, &txHash, &amount,
		&status, &entry.Reason, &blockNumber, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ActivityEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ActivityEntry{}, fmt.Errorf("postgres: scan activity: %w", err)
	}

	entry.Command = domain.Command(command)
	entry.TokenID = uint64(tokenID)
	entry.Actor = common.HexToAddress(actor)
	entry.TxHash = common.HexToHash(txHash)
	entry.Status = domain.ActivityStatus(status)
	entry.BlockNumber = uint64(blockNumber)
	if amount != nil {
		wei, ok := new(big.Int).SetString(*amount, 10)
		if !ok {
			return domain.ActivityEntry{}, fmt.Errorf("postgres: activity %s: bad amount %q", entry.ID, *amount)
		}
		entry.AmountWei = wei
	}
	return entry, nil
}
