package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/pending"
)

// PendingSyncRepository pending.Store на PostgreSQL; очереди разных процессов видят одни и те же записи
type PendingSyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ pending.Store = (*PendingSyncRepository)(nil)

func NewPendingSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *PendingSyncRepository {
	return &PendingSyncRepository{
		pool: pool,
		log:  log.With("component", "pending_sync_repository"),
	}
}

const pendingColumns = `id, owner, model_type, model_id, operation, reference_mapper, uri, created_at, attempts`

func (r *PendingSyncRepository) Store(ctx context.Context, e *pending.Entry) error {
	const query = `
		INSERT INTO pending_syncs (id, owner, model_type, model_id, operation, reference_mapper, uri, created_at, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Owner, e.ModelType, e.ModelID, string(e.Operation),
		nullable(e.ReferenceMapper), nullable(e.URI), e.CreatedAt, e.Attempts)
	if err != nil {
		r.log.Error("failed to store pending sync", "entry_id", e.ID, "owner", e.Owner, "error", err)
		return fmt.Errorf("store pending sync: %w", err)
	}
	return nil
}

func (r *PendingSyncRepository) Find(ctx context.Context, id string) (*pending.Entry, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_syncs WHERE id = $1`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pending.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	return e, nil
}

func (r *PendingSyncRepository) ForOwner(ctx context.Context, owner string) ([]*pending.Entry, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_syncs WHERE owner = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		r.log.Error("failed to list pending syncs", "owner", owner, "error", err)
		return nil, fmt.Errorf("list pending syncs: %w", err)
	}
	defer rows.Close()

	entries := make([]*pending.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PendingSyncRepository) Update(ctx context.Context, e *pending.Entry) error {
	const query = `
		UPDATE pending_syncs
		SET operation = $1, reference_mapper = $2, uri = $3, attempts = $4
		WHERE id = $5`

	tag, err := r.pool.Exec(ctx, query,
		string(e.Operation), nullable(e.ReferenceMapper), nullable(e.URI), e.Attempts, e.ID)
	if err != nil {
		return fmt.Errorf("update pending sync: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pending.ErrEntryNotFound
	}
	return nil
}

func (r *PendingSyncRepository) Remove(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM pending_syncs WHERE id = $1`, id)
	return err
}

func (r *PendingSyncRepository) RemoveForOwner(ctx context.Context, owner string) (int, error) {
	return r.exec(ctx, `DELETE FROM pending_syncs WHERE owner = $1`, owner)
}

func (r *PendingSyncRepository) RemoveForModel(ctx context.Context, modelType, modelID string) (int, error) {
	return r.exec(ctx, `DELETE FROM pending_syncs WHERE model_type = $1 AND model_id = $2`, modelType, modelID)
}

func (r *PendingSyncRepository) RemoveExpired(ctx context.Context, before time.Time) (int, error) {
	return r.exec(ctx, `DELETE FROM pending_syncs WHERE created_at < $1`, before)
}

func (r *PendingSyncRepository) CountForOwner(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pending_syncs WHERE owner = $1`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending syncs: %w", err)
	}
	return n, nil
}

func (r *PendingSyncRepository) HasForOwner(ctx context.Context, owner string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pending_syncs WHERE owner = $1)`, owner).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending syncs: %w", err)
	}
	return exists, nil
}

func (r *PendingSyncRepository) exec(ctx context.Context, query string, args ...any) (int, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to remove pending syncs", "error", err)
		return 0, fmt.Errorf("remove pending syncs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.Row) (*pending.Entry, error) {
	var (
		e        pending.Entry
		op       string
		ref, uri *string
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.ModelType, &e.ModelID, &op,
		&ref, &uri, &e.CreatedAt, &e.Attempts); err != nil {
		return nil, err
	}
	e.Operation = pending.Operation(op)
	e.ReferenceMapper = deref(ref)
	e.URI = deref(uri)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
