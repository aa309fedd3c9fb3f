package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// FileRecord represents a file entry in the database.
type FileRecord struct {
	Path      string
	Lang      string
	Hash      string
	SizeBytes int64
	MtimeUnix int64
}

// Chunk is one indexed segment of a file.
type Chunk struct {
	ChunkID   string
	Path      string
	Lang      string
	Symbol    string
	Kind      string // function, type, section, paragraph, window
	StartLine int
	EndLine   int
	Text      string
}

// DB stores the file inventory and chunk text for a repository.
type DB struct {
	db *sql.DB
}

// NewDB opens or creates the index database at dbPath. ":memory:" gives a
// private in-memory database.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// WAL lets readers continue while the watcher writes.
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path       TEXT PRIMARY KEY,
		lang       TEXT NOT NULL,
		hash       TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mtime_unix INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id   TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		lang       TEXT NOT NULL,
		symbol     TEXT,
		kind       TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line   INTEGER NOT NULL,
		text       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// UpsertFile records f and reports whether its content changed since the
// last scan (new files count as changed).
func (d *DB) UpsertFile(ctx context.Context, f FileInfo) (bool, error) {
	var existing string
	err := d.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, f.Path).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, fmt.Errorf("failed to check existing file: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO files (path, lang, hash, size_bytes, mtime_unix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			lang = excluded.lang,
			hash = excluded.hash,
			size_bytes = excluded.size_bytes,
			mtime_unix = excluded.mtime_unix`,
		f.Path, string(f.Lang), f.Hash, f.SizeBytes, f.MtimeUnix)
	if err != nil {
		return false, fmt.Errorf("failed to upsert file %s: %w", f.Path, err)
	}
	return existing != f.Hash, nil
}

// DeleteFile removes path and its chunks.
func (d *DB) DeleteFile(ctx context.Context, path string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return tx.Commit()
}

// Files returns every known file keyed by path.
func (d *DB) Files(ctx context.Context) (map[string]FileRecord, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path, lang, hash, size_bytes, mtime_unix FROM files`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := make(map[string]FileRecord)
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.Path, &r.Lang, &r.Hash, &r.SizeBytes, &r.MtimeUnix); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files[r.Path] = r
	}
	return files, rows.Err()
}

// ReplaceChunks swaps the chunks stored for path and returns the ids that
// were removed.
func (d *DB) ReplaceChunks(ctx context.Context, path string, chunks []Chunk) ([]string, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := chunkIDs(ctx, tx, path)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return nil, fmt.Errorf("failed to delete chunks for %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (chunk_id, path, lang, symbol, kind, start_line, end_line, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.Path, c.Lang, c.Symbol, c.Kind, c.StartLine, c.EndLine, c.Text); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chunks: %w", err)
	}
	return old, nil
}

// ChunkIDs returns the ids of the chunks stored for path.
func (d *DB) ChunkIDs(ctx context.Context, path string) ([]string, error) {
	return chunkIDs(ctx, d.db, path)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func chunkIDs(ctx context.Context, q queryer, path string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChunksByID loads chunks in the order of ids. Unknown ids are skipped.
func (d *DB) ChunksByID(ctx context.Context, ids []string) ([]Chunk, error) {
	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		var c Chunk
		var symbol sql.NullString
		err := d.db.QueryRowContext(ctx, `
			SELECT chunk_id, path, lang, symbol, kind, start_line, end_line, text
			FROM chunks WHERE chunk_id = ?`, id).
			Scan(&c.ChunkID, &c.Path, &c.Lang, &symbol, &c.Kind, &c.StartLine, &c.EndLine, &c.Text)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %s: %w", id, err)
		}
		c.Symbol = symbol.String
		out = append(out, c)
	}
	return out, nil
}
