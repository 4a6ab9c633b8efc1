package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"reposync/internal/domain/importer"
)

type ImportStateRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ importer.Repository = (*ImportStateRepository)(nil)

func NewImportStateRepository(pool *pgxpool.Pool, log *slog.Logger) *ImportStateRepository {
	return &ImportStateRepository{
		pool: pool,
		log:  log.With("component", "import_state_repository"),
	}
}

const importStateColumns = `id, owner, collection, status, cursor, synced, skipped, failed,
	started_at, completed_at, error, created_at, updated_at`

func (r *ImportStateRepository) FindOrCreate(ctx context.Context, owner, collection string) (*importer.State, error) {
	// DO UPDATE вместо DO NOTHING, чтобы RETURNING вернул существующую строку
	query := `
		INSERT INTO import_states (owner, collection, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, collection) DO UPDATE SET owner = EXCLUDED.owner
		RETURNING ` + importStateColumns

	st, err := scanImportState(r.pool.QueryRow(ctx, query, owner, collection, string(importer.StatusPending)))
	if err != nil {
		r.log.Error("failed to find or create import state",
			"owner", owner, "collection", collection, "error", err)
		return nil, fmt.Errorf("find or create import state: %w", err)
	}
	return st, nil
}

func (r *ImportStateRepository) Find(ctx context.Context, owner, collection string) (*importer.State, error) {
	query := `SELECT ` + importStateColumns + ` FROM import_states WHERE owner = $1 AND collection = $2`

	st, err := scanImportState(r.pool.QueryRow(ctx, query, owner, collection))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, importer.ErrStateNotFound
		}
		return nil, fmt.Errorf("get import state: %w", err)
	}
	return st, nil
}

func (r *ImportStateRepository) Save(ctx context.Context, s *importer.State) error {
	const query = `
		UPDATE import_states
		SET status = $1, cursor = $2, synced = $3, skipped = $4, failed = $5,
		    started_at = $6, completed_at = $7, error = $8, updated_at = NOW()
		WHERE owner = $9 AND collection = $10
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		string(s.Status), nullable(s.Cursor), s.Synced, s.Skipped, s.Failed,
		s.StartedAt, s.CompletedAt, nullable(s.Error),
		s.Owner, s.Collection,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return importer.ErrStateNotFound
		}
		r.log.Error("failed to save import state",
			"owner", s.Owner, "collection", s.Collection, "error", err)
		return fmt.Errorf("save import state: %w", err)
	}
	return nil
}

func (r *ImportStateRepository) Delete(ctx context.Context, owner, collection string) error {
	const query = `DELETE FROM import_states WHERE owner = $1 AND collection = $2`

	if _, err := r.pool.Exec(ctx, query, owner, collection); err != nil {
		r.log.Error("failed to delete import state", "owner", owner, "collection", collection, "error", err)
		return fmt.Errorf("delete import state: %w", err)
	}
	return nil
}

func (r *ImportStateRepository) ListForOwner(ctx context.Context, owner string) ([]*importer.State, error) {
	query := `SELECT ` + importStateColumns + ` FROM import_states WHERE owner = $1 ORDER BY collection`

	rows, err := r.pool.Query(ctx, query, owner)
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

func scanImportState(row pgx.Row) (*importer.State, error) {
	var (
		st             importer.State
		status         string
		cursor, errMsg *string
	)
	err := row.Scan(&st.ID, &st.Owner, &st.Collection, &status, &cursor,
		&st.Synced, &st.Skipped, &st.Failed, &st.StartedAt, &st.CompletedAt, &errMsg,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Status = importer.Status(status)
	st.Cursor = deref(cursor)
	st.Error = deref(errMsg)
	return &st, nil
}
