package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/seanblong/kbsearch/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT 'upload',
	category    TEXT NOT NULL DEFAULT 'general',
	tags        TEXT NOT NULL DEFAULT '[]',
	size        INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	uploaded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	position    INTEGER NOT NULL,
	keywords    TEXT NOT NULL DEFAULT '[]',
	UNIQUE (document_id, position)
);

CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);
`

// SQLite is a single-file Store for deployments without Postgres.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of concurrent ingest.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := addSQLiteColumn(ctx, db, "documents", "source", `TEXT NOT NULL DEFAULT 'upload'`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// addSQLiteColumn adds a column to databases created before it existed.
// SQLite has no ADD COLUMN IF NOT EXISTS.
func addSQLiteColumn(ctx context.Context, db *sql.DB, table, column, def string) error {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `ALTER TABLE `+table+` ADD COLUMN `+column+` `+def)
	return err
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) AddDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	tags, err := json.Marshal(nonNil(doc.Tags))
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, filename, type, source, category, tags, size, checksum, chunk_count, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Filename, string(doc.Type), string(doc.Source), doc.Category, string(tags),
		doc.Size, doc.Checksum, doc.ChunkCount, doc.UploadedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, keywords)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		kw, err := json.Marshal(nonNil(c.Keywords))
		if err != nil {
			return fmt.Errorf("marshalling keywords: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Content, c.Position, string(kw)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteDocumentColumns = `id, name, filename, type, source, category, tags, size, checksum, chunk_count, uploaded_at`

func scanSQLiteDocument(row rowScanner) (models.Document, error) {
	var (
		d                       models.Document
		typ, src, tags, created string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Filename, &typ, &src, &d.Category, &tags, &d.Size, &d.Checksum, &d.ChunkCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	d.Type = models.DocType(typ)
	d.Source = models.Source(src)
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return models.Document{}, fmt.Errorf("unmarshalling tags: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return models.Document{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	d.UploadedAt = t
	return d, nil
}

func (s *SQLite) GetDocument(ctx context.Context, id string) (models.Document, error) {
	return scanSQLiteDocument(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteDocumentColumns+` FROM documents WHERE id = ?`, id))
}

func (s *SQLite) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteDocumentColumns+` FROM documents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanSQLiteDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *SQLite) UpdateDocument(ctx context.Context, id string, u models.DocumentUpdate) (models.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Document{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur, err := scanSQLiteDocument(tx.QueryRowContext(ctx,
		`SELECT `+sqliteDocumentColumns+` FROM documents WHERE id = ?`, id))
	if err != nil {
		return models.Document{}, err
	}
	out := cur.Apply(u)

	tags, err := json.Marshal(nonNil(out.Tags))
	if err != nil {
		return models.Document{}, fmt.Errorf("marshalling tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET name = ?, category = ?, tags = ? WHERE id = ?`,
		out.Name, out.Category, string(tags), id,
	); err != nil {
		return models.Document{}, fmt.Errorf("updating document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Document{}, fmt.Errorf("committing transaction: %w", err)
	}
	return out, nil
}

func (s *SQLite) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLite) ListChunks(ctx context.Context) ([]models.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT c.id, c.document_id, c.content, c.position, c.keywords
		FROM chunks c JOIN documents d ON d.id = c.document_id
		ORDER BY d.seq, c.position`)
}

func (s *SQLite) ListChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT id, document_id, content, position, keywords
		FROM chunks WHERE document_id = ?
		ORDER BY position`, documentID)
}

func (s *SQLite) queryChunks(ctx context.Context, q string, args ...any) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var (
			c  models.Chunk
			kw string
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &kw); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(kw), &c.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshalling keywords: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}
