// Package corpus persists the labeled reference corpus in a SQLite file.
package corpus

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

//go:embed schema.sql
var schemaFS embed.FS

// CurrentSchemaVersion is the version of the corpus file layout.
const CurrentSchemaVersion = 1

const (
	metaDim     = "dim"
	metaModel   = "model"
	metaBuiltAt = "built_at"
)

// Meta describes how a corpus snapshot was built.
type Meta struct {
	Dim     int
	Model   string
	BuiltAt time.Time
	Count   int
}

// Store is a corpus snapshot on disk.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the corpus file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping corpus: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate corpus: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

func (s *Store) migrate() error {
	var exists int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists); err != nil {
		return fmt.Errorf("check schema_version: %w", err)
	}
	if exists > 0 {
		var version int
		err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
		if err == nil && version >= CurrentSchemaVersion {
			return nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema version: %w", err)
		}
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, ?)",
		CurrentSchemaVersion, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// Replace atomically swaps the stored corpus for docs. Insertion order is
// preserved and determines tie order on load.
func (s *Store) Replace(ctx context.Context, model string, docs []index.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyIndex
	}
	dim := len(docs[0].Vector)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM corpus_meta"); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (label, source_ref, text, vector) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range docs {
		if len(d.Vector) != dim {
			return fmt.Errorf("%w: %s has %d, corpus uses %d",
				domain.ErrDimensionMismatch, d.SourceRef, len(d.Vector), dim)
		}
		if _, err := stmt.ExecContext(ctx, d.Label, d.SourceRef, d.Text, index.EncodeVector(d.Vector)); err != nil {
			return fmt.Errorf("insert %s: %w", d.SourceRef, err)
		}
	}

	meta := map[string]string{
		metaDim:     strconv.Itoa(dim),
		metaModel:   model,
		metaBuiltAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO corpus_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Meta reads the snapshot description. An unbuilt corpus yields ErrEmptyIndex.
func (s *Store) Meta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM corpus_meta")
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Meta{}, fmt.Errorf("iterate meta: %w", err)
	}

	raw, ok := values[metaDim]
	if !ok {
		return Meta{}, fmt.Errorf("%w: corpus %s has not been built", domain.ErrEmptyIndex, s.path)
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return Meta{}, fmt.Errorf("parse dim %q: %w", raw, err)
	}
	meta := Meta{Dim: dim, Model: values[metaModel]}
	if t, err := time.Parse(time.RFC3339, values[metaBuiltAt]); err == nil {
		meta.BuiltAt = t
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&meta.Count); err != nil {
		return Meta{}, fmt.Errorf("count documents: %w", err)
	}
	return meta, nil
}

// Load builds an in-memory index from the snapshot in insertion order.
func (s *Store) Load(ctx context.Context) (*index.Index, Meta, error) {
	meta, err := s.Meta(ctx)
	if err != nil {
		return nil, Meta{}, err
	}
	idx, err := index.New(meta.Dim)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("new index: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT label, source_ref, text, vector FROM documents ORDER BY id")
	if err != nil {
		return nil, Meta{}, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			doc  index.Document
			blob []byte
		)
		if err := rows.Scan(&doc.Label, &doc.SourceRef, &doc.Text, &blob); err != nil {
			return nil, Meta{}, fmt.Errorf("scan document: %w", err)
		}
		if doc.Vector, err = index.DecodeVector(blob); err != nil {
			return nil, Meta{}, fmt.Errorf("decode %s: %w", doc.SourceRef, err)
		}
		if err := idx.Add(doc); err != nil {
			return nil, Meta{}, fmt.Errorf("load %s: %w", doc.SourceRef, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, Meta{}, fmt.Errorf("iterate documents: %w", err)
	}
	return idx, meta, nil
}

// Labels returns the number of documents per label.
func (s *Store) Labels(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT label, COUNT(*) FROM documents GROUP BY label")
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out[label] = n
	}
	return out, rows.Err()
}
