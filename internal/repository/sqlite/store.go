package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mamadbah2/saveeat/internal/domain/models"
	"github.com/mamadbah2/saveeat/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	user_id    TEXT NOT NULL,
	collection TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, collection, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, user_id);
`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a document store kept in a single SQLite table, one JSON row per document.
type Store struct {
	db     *sql.DB
	q      querier
	inTx   bool
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore opens (and creates if needed) the database at path.
func NewStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; transactions hold it until commit.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug("sqlite store ready", zap.String("path", path))
	return &Store{db: db, q: db, logger: logger}, nil
}

// Get returns the fields stored at ref.
func (s *Store) Get(ctx context.Context, ref repository.Ref) (repository.Fields, error) {
	var data string
	err := s.q.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		ref.UserID, ref.Collection, ref.ID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", models.ErrExternalService, ref, err)
	}

	return unmarshalFields(data)
}

// Set writes the document at ref, overlaying existing fields when merge is true.
func (s *Store) Set(ctx context.Context, ref repository.Ref, fields repository.Fields, merge bool) error {
	if !merge {
		return s.upsert(ctx, ref, fields)
	}

	return s.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Get(ctx, ref)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		return tx.(*Store).upsert(ctx, ref, repository.MergeFields(existing, fields))
	})
}

func (s *Store) upsert(ctx context.Context, ref repository.Ref, fields repository.Fields) error {
	if fields == nil {
		fields = repository.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ref, err)
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, collection, doc_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ref.UserID, ref.Collection, ref.ID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", models.ErrExternalService, ref, err)
	}
	return nil
}

// Delete removes the document at ref. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, ref repository.Ref) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		ref.UserID, ref.Collection, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", models.ErrExternalService, ref, err)
	}
	return nil
}

// List returns every document of a user's collection ordered by id.
func (s *Store) List(ctx context.Context, userID, collection string) ([]repository.Document, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT doc_id, data FROM documents WHERE user_id = ? AND collection = ? ORDER BY doc_id`,
		userID, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list users/%s/%s: %w", models.ErrExternalService, userID, collection, err)
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("%w: scan users/%s/%s: %w", models.ErrExternalService, userID, collection, err)
		}
		fields, err := unmarshalFields(data)
		if err != nil {
			s.logger.Debug("skip unreadable document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
			continue
		}
		docs = append(docs, repository.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users/%s/%s: %w", models.ErrExternalService, userID, collection, err)
	}

	return docs, nil
}

// UserIDs returns the users owning at least one document in collection.
func (s *Store) UserIDs(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM documents WHERE collection = ? ORDER BY user_id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list users of %s: %w", models.ErrExternalService, collection, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan users of %s: %w", models.ErrExternalService, collection, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RunInTx runs fn inside a SQL transaction. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", models.ErrExternalService, err)
	}

	txStore := &Store{db: s.db, q: sqlTx, inTx: true, logger: s.logger}
	if err := fn(ctx, txStore); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %w", models.ErrExternalService, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close(_ context.Context) error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

func unmarshalFields(data string) (repository.Fields, error) {
	fields := repository.Fields{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return fields, nil
}
