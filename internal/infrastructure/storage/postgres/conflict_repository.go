package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
)

type ConflictRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ conflict.Repository = (*ConflictRepository)(nil)

func NewConflictRepository(pool *pgxpool.Pool, log *slog.Logger) *ConflictRepository {
	return &ConflictRepository{
		pool: pool,
		log:  log.With("component", "conflict_repository"),
	}
}

const conflictColumns = `id, model_type, model_id, uri, remote_cid, local_snapshot, remote_snapshot,
	status, resolution, created_at, resolved_at`

func (r *ConflictRepository) Create(ctx context.Context, c *conflict.PendingConflict) error {
	query := `
		INSERT INTO pending_conflicts (` + conflictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.ModelType, c.ModelID, c.URI, nullable(c.RemoteVersion),
		[]byte(c.LocalSnapshot), []byte(c.RemoteSnapshot),
		string(c.Status), nullable(string(c.Resolution)), c.CreatedAt, c.ResolvedAt)
	if err != nil {
		r.log.Error("failed to create conflict", "conflict_id", c.ID, "error", err)
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

func (r *ConflictRepository) Find(ctx context.Context, id string) (*conflict.PendingConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM pending_conflicts WHERE id = $1`

	c, err := scanConflict(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conflict.ErrConflictNotFound
		}
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return c, nil
}

func (r *ConflictRepository) List(ctx context.Context, status conflict.Status) ([]*conflict.PendingConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM pending_conflicts
		WHERE ($1 = '' OR status = $1) ORDER BY created_at, id`
	return r.query(ctx, query, string(status))
}

func (r *ConflictRepository) ListForModel(ctx context.Context, modelType, modelID string) ([]*conflict.PendingConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM pending_conflicts
		WHERE model_type = $1 AND model_id = $2 ORDER BY created_at, id`
	return r.query(ctx, query, modelType, modelID)
}

func (r *ConflictRepository) Update(ctx context.Context, c *conflict.PendingConflict) error {
	const query = `
		UPDATE pending_conflicts
		SET remote_cid = $1, local_snapshot = $2, remote_snapshot = $3,
		    status = $4, resolution = $5, resolved_at = $6
		WHERE id = $7`

	tag, err := r.pool.Exec(ctx, query,
		nullable(c.RemoteVersion), []byte(c.LocalSnapshot), []byte(c.RemoteSnapshot),
		string(c.Status), nullable(string(c.Resolution)), c.ResolvedAt, c.ID)
	if err != nil {
		r.log.Error("failed to update conflict", "conflict_id", c.ID, "error", err)
		return fmt.Errorf("update conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return conflict.ErrConflictNotFound
	}
	return nil
}

func (r *ConflictRepository) query(ctx context.Context, query string, args ...any) ([]*conflict.PendingConflict, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	out := make([]*conflict.PendingConflict, 0)
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConflict(row pgx.Row) (*conflict.PendingConflict, error) {
	var (
		c                  conflict.PendingConflict
		status             string
		remoteCID, res     *string
		localSnap, remSnap []byte
	)
	if err := row.Scan(&c.ID, &c.ModelType, &c.ModelID, &c.URI, &remoteCID, &localSnap, &remSnap,
		&status, &res, &c.CreatedAt, &c.ResolvedAt); err != nil {
		return nil, err
	}
	c.Status = conflict.Status(status)
	c.RemoteVersion = deref(remoteCID)
	c.Resolution = conflict.Side(deref(res))
	c.LocalSnapshot = localSnap
	c.RemoteSnapshot = remSnap
	return &c, nil
}
