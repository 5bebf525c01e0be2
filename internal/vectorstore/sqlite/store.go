// Package sqlite provides a persistent vector index backed by a local SQLite database.
// Vectors are stored as little-endian float64 blobs and ranked by brute-force cosine
// distance, which is adequate for the collection sizes a single workstation ingests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"ragqa/internal/domain"
	"ragqa/internal/vectorstore"
	"ragqa/internal/vectorstore/sqlite/migrations"
)

// Ensure Store implements the interface.
var _ vectorstore.Storage = (*Store)(nil)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "index.db"

// Store is a SQLite-backed vector index.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the index inside dataDir.
// If dataDir is empty, defaults to ~/.local/share/ragqa.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "ragqa")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DefaultFileName)

	// WAL mode lets a reader run while another process ingests.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_entries.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// Upsert stores entries, overwriting rows that share an id.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexedEntry) error {
	dim, err := vectorstore.CheckDimensions(entries)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	current, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if current != 0 && current != dim {
		return fmt.Errorf("%w: index has dimension %d, got %d", domain.ErrInvalidInput, current, dim)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, content, source, type, chunk_index, char_count, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			source = excluded.source,
			type = excluded.type,
			chunk_index = excluded.chunk_index,
			char_count = excluded.char_count,
			vector = excluded.vector,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		m := e.Metadata
		if _, err := stmt.ExecContext(ctx, e.ID, e.Text, m.Source, m.Type, m.ChunkIndex, m.CharCount,
			float64SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("saving entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query returns the topK entries nearest to vector by cosine distance.
func (s *Store) Query(ctx context.Context, vector []float64, topK int) ([]domain.RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, source, type, chunk_index, char_count, vector
		FROM entries ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var candidates []domain.IndexedEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.IndexedEntry
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Text, &e.Metadata.Source, &e.Metadata.Type,
			&e.Metadata.ChunkIndex, &e.Metadata.CharCount, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Vector = bytesToFloat64Slice(blob)
		if len(e.Vector) != len(vector) {
			return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
				domain.ErrInvalidInput, len(vector), len(e.Vector))
		}
		candidates = append(candidates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return vectorstore.TopK(vector, candidates, topK), nil
}

// List returns the metadata of every stored entry in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, type, chunk_index, char_count FROM entries ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	defer rows.Close()

	var out []domain.Metadata //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.Metadata
		if err := rows.Scan(&m.Source, &m.Type, &m.ChunkIndex, &m.CharCount); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata: %w", err)
	}
	return out, nil
}

// DeleteSource removes every entry ingested from source and returns how many were removed.
func (s *Store) DeleteSource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("deleting source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(n), nil
}

func (s *Store) dimension(ctx context.Context) (int, error) {
	var n sql.NullInt64
	row := s.db.QueryRowContext(ctx, "SELECT length(vector) FROM entries LIMIT 1")
	if err := row.Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("reading index dimension: %w", err)
	}
	return int(n.Int64) / 8, nil
}

// float64SliceToBytes converts a []float64 to a byte slice for storage.
func float64SliceToBytes(floats []float64) []byte {
	buf := make([]byte, len(floats)*8)
	for i, f := range floats {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// bytesToFloat64Slice converts a byte slice back to []float64.
func bytesToFloat64Slice(data []byte) []float64 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float64, len(data)/8)
	for i := range floats {
		floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return floats
}
