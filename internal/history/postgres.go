package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Lllllllleong/voicedocflow/internal/history/migrations"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepository stores history in a Postgres table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects through the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}
	return NewPostgresRepository(db), db, nil
}

// gooseUpContext is a seam for tests.
var gooseUpContext = goose.UpContext

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// appendLockKey is the advisory lock that serializes appends.
const appendLockKey int64 = 48151623

// Append holds appendLockKey for the length of its transaction, so ids are
// drawn in commit order and created_at can be forced past the newest row.
func (r *PostgresRepository) Append(ctx context.Context, entry models.HistoryEntry) (int64, error) {
	if entry.OwnerID == "" {
		return 0, ErrEmptyOwner
	}
	query := `INSERT INTO history
		(owner_id, display_name, original_name, media_type, byte_size,
		 transcript_text, remote_doc_id, remote_doc_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, GREATEST(clock_timestamp(),
		 COALESCE((SELECT max(created_at) FROM history), '-infinity'::timestamptz) + interval '1 microsecond'))
		RETURNING id`

	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, query,
			entry.OwnerID, entry.DisplayName, entry.OriginalName, entry.MediaType, entry.ByteSize,
			entry.TranscriptText, entry.RemoteDocID, entry.RemoteDocURL,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return id, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.HistoryEntry, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	query := `SELECT ` + historyColumns + `
		FROM history
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	out := []models.HistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64, ownerID string) (models.HistoryEntry, bool, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE id = $1 AND owner_id = $2`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryEntry{}, false, nil
	}
	if err != nil {
		return models.HistoryEntry{}, false, fmt.Errorf("error performing sql request: %w", err)
	}
	return e, true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return affected(res)
}

func (r *PostgresRepository) RenameDisplayName(ctx context.Context, id int64, ownerID, newName string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE history SET display_name = $1 WHERE id = $2 AND owner_id = $3`, newName, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return affected(res)
}

const historyColumns = `id, owner_id, display_name, original_name, media_type, byte_size,
		transcript_text, remote_doc_id, remote_doc_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := row.Scan(&e.ID, &e.OwnerID, &e.DisplayName, &e.OriginalName, &e.MediaType, &e.ByteSize,
		&e.TranscriptText, &e.RemoteDocID, &e.RemoteDocURL, &e.CreatedAt)
	return e, err
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}
