package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seanblong/kbsearch/pkg/models"
)

// Postgres provides methods to interact with the database.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// New creates a new Postgres store connected to the given database URL.
func New(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: p}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies necessary database migrations and schema setup.
func (s *Postgres) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS documents (
  seq          BIGSERIAL,
  id           TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  filename     TEXT NOT NULL DEFAULT '',
  type         TEXT NOT NULL,
  source       TEXT NOT NULL DEFAULT 'upload',
  category     TEXT NOT NULL DEFAULT 'general',
  tags         TEXT[] NOT NULL DEFAULT '{}',
  size         BIGINT NOT NULL DEFAULT 0,
  checksum     TEXT NOT NULL DEFAULT '',
  chunk_count  INT NOT NULL DEFAULT 0,
  uploaded_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
  id           TEXT PRIMARY KEY,
  document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  content      TEXT NOT NULL,
  position     INT NOT NULL,
  keywords     TEXT[] NOT NULL DEFAULT '{}',
  UNIQUE (document_id, position)
);

ALTER TABLE documents ADD COLUMN IF NOT EXISTS source TEXT NOT NULL DEFAULT 'upload';

CREATE INDEX IF NOT EXISTS documents_seq_idx
  ON documents (seq);

CREATE INDEX IF NOT EXISTS documents_filename_idx
  ON documents (filename);
`
	_, err := s.pool.Exec(ctx, q)
	return err
}

// AddDocument inserts the document row and copies its chunks in one
// transaction.
func (s *Postgres) AddDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
		INSERT INTO documents (
			id, name, filename, type, source, category, tags, size, checksum, chunk_count, uploaded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.Exec(ctx, q,
			doc.ID, doc.Name, doc.Filename, string(doc.Type), string(doc.Source), doc.Category, nonNil(doc.Tags),
			doc.Size, doc.Checksum, doc.ChunkCount, doc.UploadedAt,
		); err != nil {
			return err
		}

		if len(chunks) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"chunks"},
			[]string{"id", "document_id", "content", "position", "keywords"},
			pgx.CopyFromSlice(len(chunks), func(i int) ([]any, error) {
				c := chunks[i]
				return []any{c.ID, c.DocumentID, c.Content, c.Position, nonNil(c.Keywords)}, nil
			}),
		)
		return err
	})
}

const documentColumns = `id, name, filename, type, source, category, tags, size, checksum, chunk_count, uploaded_at`

func scanDocument(row pgx.Row) (models.Document, error) {
	var (
		d        models.Document
		typ, src string
	)
	err := row.Scan(&d.ID, &d.Name, &d.Filename, &typ, &src, &d.Category, &d.Tags, &d.Size, &d.Checksum, &d.ChunkCount, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, err
	}
	d.Type = models.DocType(typ)
	d.Source = models.Source(src)
	return d, nil
}

// GetDocument retrieves a document by ID.
func (s *Postgres) GetDocument(ctx context.Context, id string) (models.Document, error) {
	return scanDocument(s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

// ListDocuments returns all documents in upload order.
func (s *Postgres) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocument merges u into the stored metadata.
func (s *Postgres) UpdateDocument(ctx context.Context, id string, u models.DocumentUpdate) (models.Document, error) {
	var out models.Document
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanDocument(tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		out = cur.Apply(u)
		_, err = tx.Exec(ctx,
			`UPDATE documents SET name = $2, category = $3, tags = $4 WHERE id = $1`,
			id, out.Name, out.Category, nonNil(out.Tags),
		)
		return err
	})
	if err != nil {
		return models.Document{}, err
	}
	return out, nil
}

// DeleteDocument removes a document; its chunks go with it through the
// foreign key.
func (s *Postgres) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChunks returns every chunk of every document.
func (s *Postgres) ListChunks(ctx context.Context) ([]models.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT c.id, c.document_id, c.content, c.position, c.keywords
		FROM chunks c JOIN documents d ON d.id = c.document_id
		ORDER BY d.seq, c.position`)
}

// ListChunksByDocument returns the chunks of one document.
func (s *Postgres) ListChunksByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT id, document_id, content, position, keywords
		FROM chunks WHERE document_id = $1
		ORDER BY position`, documentID)
}

func (s *Postgres) queryChunks(ctx context.Context, q string, args ...any) ([]models.Chunk, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &c.Keywords); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping checks the database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// nonNil keeps NOT NULL array columns happy.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
