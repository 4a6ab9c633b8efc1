package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/conflict"
)

// Conflicts conflict.Repository поверх таблицы pending_conflicts
type Conflicts struct {
	db  *sql.DB
	log *slog.Logger
}

const conflictColumns = `id, model_type, model_id, uri, remote_cid, local_snapshot, remote_snapshot,
	status, resolution, created_at, resolved_at`

func (r *Conflicts) Create(ctx context.Context, c *conflict.PendingConflict) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_conflicts (`+conflictColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ModelType, c.ModelID, c.URI, nullString(c.RemoteVersion),
		string(c.LocalSnapshot), string(c.RemoteSnapshot),
		c.Status, nullString(string(c.Resolution)), c.CreatedAt.UTC(), nullTime(c.ResolvedAt))
	if err != nil {
		r.log.Error("failed to create conflict", "conflict_id", c.ID, "error", err)
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

func (r *Conflicts) Find(ctx context.Context, id string) (*conflict.PendingConflict, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM pending_conflicts WHERE id = ?`, id)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, conflict.ErrConflictNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return c, nil
}

func (r *Conflicts) List(ctx context.Context, status conflict.Status) ([]*conflict.PendingConflict, error) {
	if status == "" {
		return r.query(ctx, `SELECT `+conflictColumns+` FROM pending_conflicts ORDER BY created_at, id`)
	}
	return r.query(ctx,
		`SELECT `+conflictColumns+` FROM pending_conflicts WHERE status = ? ORDER BY created_at, id`, status)
}

func (r *Conflicts) ListForModel(ctx context.Context, modelType, modelID string) ([]*conflict.PendingConflict, error) {
	return r.query(ctx, `SELECT `+conflictColumns+` FROM pending_conflicts
		WHERE model_type = ? AND model_id = ? ORDER BY created_at, id`, modelType, modelID)
}

func (r *Conflicts) Update(ctx context.Context, c *conflict.PendingConflict) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_conflicts
		SET remote_cid = ?, local_snapshot = ?, remote_snapshot = ?, status = ?, resolution = ?, resolved_at = ?
		WHERE id = ?`,
		nullString(c.RemoteVersion), string(c.LocalSnapshot), string(c.RemoteSnapshot),
		c.Status, nullString(string(c.Resolution)), nullTime(c.ResolvedAt), c.ID)
	if err != nil {
		return fmt.Errorf("update conflict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return conflict.ErrConflictNotFound
	}
	return nil
}

func (r *Conflicts) query(ctx context.Context, query string, args ...any) ([]*conflict.PendingConflict, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanConflict(row scanner) (*conflict.PendingConflict, error) {
	var (
		c                  conflict.PendingConflict
		remoteCID, res     sql.NullString
		localSnap, remSnap string
		resolvedAt         sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.ModelType, &c.ModelID, &c.URI, &remoteCID, &localSnap, &remSnap,
		&c.Status, &res, &c.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	c.RemoteVersion = remoteCID.String
	c.LocalSnapshot = []byte(localSnap)
	c.RemoteSnapshot = []byte(remSnap)
	c.Resolution = conflict.Side(res.String)
	c.CreatedAt = c.CreatedAt.UTC()
	c.ResolvedAt = timePtr(resolvedAt)
	return &c, nil
}
