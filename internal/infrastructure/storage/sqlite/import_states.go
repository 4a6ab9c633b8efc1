package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/importer"
)

// ImportStates importer.Repository поверх таблицы import_states
type ImportStates struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

const importStateColumns = `id, owner, collection, status, cursor, synced, skipped, failed,
	started_at, completed_at, error, created_at, updated_at`

func (r *ImportStates) FindOrCreate(ctx context.Context, owner, collection string) (*importer.State, error) {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_states (owner, collection, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner, collection) DO NOTHING`,
		owner, collection, importer.StatusPending, now, now)
	if err != nil {
		r.log.Error("failed to create import state", "owner", owner, "collection", collection, "error", err)
		return nil, fmt.Errorf("create import state: %w", err)
	}
	return r.Find(ctx, owner, collection)
}

func (r *ImportStates) Find(ctx context.Context, owner, collection string) (*importer.State, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+importStateColumns+` FROM import_states WHERE owner = ? AND collection = ?`,
		owner, collection)

	st, err := scanImportState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, importer.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import state: %w", err)
	}
	return st, nil
}

func (r *ImportStates) Save(ctx context.Context, s *importer.State) error {
	s.UpdatedAt = r.now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE import_states
		SET status = ?, cursor = ?, synced = ?, skipped = ?, failed = ?,
		    started_at = ?, completed_at = ?, error = ?, updated_at = ?
		WHERE owner = ? AND collection = ?`,
		s.Status, nullString(s.Cursor), s.Synced, s.Skipped, s.Failed,
		nullTime(s.StartedAt), nullTime(s.CompletedAt), nullString(s.Error), s.UpdatedAt,
		s.Owner, s.Collection)
	if err != nil {
		r.log.Error("failed to save import state", "owner", s.Owner, "collection", s.Collection, "error", err)
		return fmt.Errorf("save import state: %w", err)
	}
	return nil
}

func (r *ImportStates) Delete(ctx context.Context, owner, collection string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM import_states WHERE owner = ? AND collection = ?`, owner, collection); err != nil {
		return fmt.Errorf("delete import state: %w", err)
	}
	return nil
}

func (r *ImportStates) ListForOwner(ctx context.Context, owner string) ([]*importer.State, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+importStateColumns+` FROM import_states WHERE owner = ? ORDER BY collection`, owner)
	if err != nil {
		return nil, fmt.Errorf("list import states: %w", err)
	}
	defer rows.Close()

	states := make([]*importer.State, 0)
	for rows.Next() {
		st, err := scanImportState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func scanImportState(row scanner) (*importer.State, error) {
	var (
		st                     importer.State
		cursor, errMsg         sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := row.Scan(&st.ID, &st.Owner, &st.Collection, &st.Status, &cursor,
		&st.Synced, &st.Skipped, &st.Failed, &startedAt, &completedAt, &errMsg,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	st.Cursor = cursor.String
	st.Error = errMsg.String
	st.StartedAt = timePtr(startedAt)
	st.CompletedAt = timePtr(completedAt)
	return &st, nil
}
