package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/pending"
)

// PendingSyncs pending.Store поверх таблицы pending_syncs.
// Каждая операция это один SQL-запрос, поэтому атомарна для отдельной записи.
type PendingSyncs struct {
	db  *sql.DB
	log *slog.Logger
}

var _ pending.Store = (*PendingSyncs)(nil)

const pendingColumns = `id, owner, model_type, model_id, operation, reference_mapper, uri, created_at, attempts`

func (s *PendingSyncs) Store(ctx context.Context, e *pending.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_syncs (`+pendingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.ModelType, e.ModelID, e.Operation,
		nullString(e.ReferenceMapper), nullString(e.URI), e.CreatedAt.UTC(), e.Attempts)
	if err != nil {
		s.log.Error("failed to store pending sync", "entry_id", e.ID, "error", err)
		return fmt.Errorf("store pending sync: %w", err)
	}
	return nil
}

func (s *PendingSyncs) Find(ctx context.Context, id string) (*pending.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_syncs WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pending.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	return e, nil
}

func (s *PendingSyncs) ForOwner(ctx context.Context, owner string) ([]*pending.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_syncs WHERE owner = ? ORDER BY created_at, id`, owner)
	if err != nil {
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

func (s *PendingSyncs) Update(ctx context.Context, e *pending.Entry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_syncs
		SET operation = ?, reference_mapper = ?, uri = ?, attempts = ?
		WHERE id = ?`,
		e.Operation, nullString(e.ReferenceMapper), nullString(e.URI), e.Attempts, e.ID)
	if err != nil {
		return fmt.Errorf("update pending sync: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pending.ErrEntryNotFound
	}
	return nil
}

func (s *PendingSyncs) Remove(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM pending_syncs WHERE id = ?`, id)
	return err
}

func (s *PendingSyncs) RemoveForOwner(ctx context.Context, owner string) (int, error) {
	return s.exec(ctx, `DELETE FROM pending_syncs WHERE owner = ?`, owner)
}

func (s *PendingSyncs) RemoveForModel(ctx context.Context, modelType, modelID string) (int, error) {
	return s.exec(ctx, `DELETE FROM pending_syncs WHERE model_type = ? AND model_id = ?`, modelType, modelID)
}

func (s *PendingSyncs) RemoveExpired(ctx context.Context, before time.Time) (int, error) {
	return s.exec(ctx, `DELETE FROM pending_syncs WHERE created_at < ?`, before.UTC())
}

func (s *PendingSyncs) CountForOwner(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_syncs WHERE owner = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending syncs: %w", err)
	}
	return n, nil
}

func (s *PendingSyncs) HasForOwner(ctx context.Context, owner string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pending_syncs WHERE owner = ?)`, owner).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending syncs: %w", err)
	}
	return exists, nil
}

func (s *PendingSyncs) exec(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.log.Error("failed to remove pending syncs", "error", err)
		return 0, fmt.Errorf("remove pending syncs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func scanEntry(row scanner) (*pending.Entry, error) {
	var (
		e        pending.Entry
		ref, uri sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.ModelType, &e.ModelID, &e.Operation,
		&ref, &uri, &e.CreatedAt, &e.Attempts); err != nil {
		return nil, err
	}
	e.ReferenceMapper = ref.String
	e.URI = uri.String
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
