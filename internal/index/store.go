// Package index keeps the two synchronized projections of every catalog
// record: the canonical key→document table and the derived FTS5 search
// table, plus the value-frequency table that feeds autocomplete. All three
// change together inside one transaction, so the projections can never
// drift apart for a local writer.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/0xpix/hei-datahub/internal/catalog"
)

// Store is the SQLite-backed index. Writes are serialized behind the mutex;
// reads run concurrently against WAL snapshots and never observe a partial
// write.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	log *zap.Logger
}

const storeSchema = `
-- Canonical key→document projection.
CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT '',
    storage TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    projects TEXT NOT NULL DEFAULT '[]',
    size INTEGER NOT NULL DEFAULT 0,
    date_created TEXT NOT NULL DEFAULT '',
    date_modified TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
);

-- Derived searchable projection: one row per record, list fields flattened
-- into text blobs. The identifier is carried but never tokenized.
CREATE VIRTUAL TABLE IF NOT EXISTS record_fts USING fts5(
    id UNINDEXED,
    name, description, tags, projects, source, format, type, storage,
    tokenize = 'unicode61 remove_diacritics 2'
);

-- Distinct value frequencies per field, kept in step with upsert/delete so
-- autocomplete never suggests a value absent from the current index.
CREATE TABLE IF NOT EXISTS field_values (
    field TEXT NOT NULL,
    value TEXT NOT NULL,
    freq INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (field, value)
);
`

// Open opens (or creates) the index database at path. The handle is owned by
// the caller and passed to every component that needs it; there is no
// package-level connection.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Upsert replaces both projections of a record atomically. Immediately after
// it returns, searches on this store observe the change.
func (s *Store) Upsert(rec *catalog.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withWriteRetry(func() error { return s.upsertLocked(rec) })
}

func (s *Store) upsertLocked(rec *catalog.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", rec.ID, err)
	}
	defer tx.Rollback()

	old, err := getTx(tx, rec.ID)
	if err != nil {
		return err
	}
	if err := deleteEntryTx(tx, rec.ID); err != nil {
		return err
	}
	if err := insertEntryTx(tx, rec); err != nil {
		return err
	}
	if old != nil {
		if err := bumpValues(tx, old, -1); err != nil {
			return err
		}
	}
	if err := bumpValues(tx, rec, +1); err != nil {
		return err
	}
	if err := purgeEmptyValues(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes both projections of a record. Deleting an unknown
// identifier succeeds silently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withWriteRetry(func() error { return s.deleteLocked(id) })
}

func (s *Store) deleteLocked(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", id, err)
	}
	defer tx.Rollback()

	old, err := getTx(tx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return tx.Commit()
	}
	if err := deleteEntryTx(tx, id); err != nil {
		return err
	}
	if err := bumpValues(tx, old, -1); err != nil {
		return err
	}
	if err := purgeEmptyValues(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Get is the canonical lookup; it never touches the search projection.
// A missing identifier returns (nil, nil).
func (s *Store) Get(id string) (*catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, description, source, format, type, storage,
			tags, projects, size, date_created, date_modified, created_at, updated_at
		FROM records WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// Rebuild clears the whole index and repopulates it from the canonical
// record stream. It either fully replaces the index or, on a hard storage
// failure, leaves the previous index untouched. Per-record failures are
// collected and returned, never fatal.
func (s *Store) Rebuild(records []catalog.Record) (int, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, []error{fmt.Errorf("begin rebuild: %w", err)}
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM records`,
		`DELETE FROM record_fts`,
		`DELETE FROM field_values`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return 0, []error{fmt.Errorf("clear index: %w", err)}
		}
	}

	var errs []error
	seen := make(map[string]bool, len(records))
	count := 0
	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			errs = append(errs, &RecordError{ID: rec.ID, Err: err})
			continue
		}
		if seen[rec.ID] {
			errs = append(errs, &RecordError{ID: rec.ID, Err: fmt.Errorf("duplicate identifier")})
			continue
		}
		seen[rec.ID] = true

		if err := insertEntryTx(tx, rec); err != nil {
			errs = append(errs, &RecordError{ID: rec.ID, Err: err})
			continue
		}
		if err := bumpValues(tx, rec, +1); err != nil {
			errs = append(errs, &RecordError{ID: rec.ID, Err: err})
			continue
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, []error{fmt.Errorf("commit rebuild: %w", err)}
	}
	s.log.Info("index rebuilt", zap.Int("records", count), zap.Int("errors", len(errs)))
	return count, errs
}

// Count returns the number of indexed records.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Verify checks storage integrity of both projections. A failure wraps
// ErrIndexCorrupt; the recovery path is Rebuild.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res string
	if err := s.db.QueryRow(`PRAGMA quick_check`).Scan(&res); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if res != "ok" {
		return fmt.Errorf("%w: %s", ErrIndexCorrupt, res)
	}
	if _, err := s.db.Exec(`INSERT INTO record_fts(record_fts) VALUES('integrity-check')`); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	return nil
}

// TopValue returns the most frequent distinct value indexed for a field.
// Frequency ties break lexicographically for determinism.
func (s *Store) TopValue(field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRow(`
		SELECT value FROM field_values
		WHERE field = ? AND freq > 0
		ORDER BY freq DESC, value ASC
		LIMIT 1
	`, field).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// withWriteRetry retries busy write conflicts once before surfacing them.
func (s *Store) withWriteRetry(fn func() error) error {
	err := fn()
	if !isBusy(err) {
		return err
	}
	s.log.Warn("write conflict, retrying once", zap.Error(err))
	time.Sleep(25 * time.Millisecond)
	return fn()
}

// ---------------------------------------------------------------------------
// Row helpers
// ---------------------------------------------------------------------------

func insertEntryTx(tx *sql.Tx, rec *catalog.Record) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	projectsJSON, err := json.Marshal(rec.Projects)
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO records (id, name, description, source, format, type, storage,
			tags, projects, size, date_created, date_modified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Description, rec.Source, rec.Format, rec.Type, rec.Storage,
		string(tagsJSON), string(projectsJSON), rec.SizeBytes,
		rec.DateCreated, rec.DateModified, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO record_fts (id, name, description, tags, projects, source, format, type, storage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Description,
		strings.Join(rec.Tags, " "), strings.Join(rec.Projects, " "),
		rec.Source, rec.Format, rec.Type, rec.Storage)
	if err != nil {
		return fmt.Errorf("insert index entry: %w", err)
	}
	return nil
}

func deleteEntryTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM record_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete index entry: %w", err)
	}
	return nil
}

func getTx(tx *sql.Tx, id string) (*catalog.Record, error) {
	row := tx.QueryRow(`
		SELECT id, name, description, source, format, type, storage,
			tags, projects, size, date_created, date_modified, created_at, updated_at
		FROM records WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*catalog.Record, error) {
	var rec catalog.Record
	var tagsJSON, projectsJSON string

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Description, &rec.Source, &rec.Format, &rec.Type, &rec.Storage,
		&tagsJSON, &projectsJSON, &rec.SizeBytes,
		&rec.DateCreated, &rec.DateModified, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		rec.Tags = nil
	}
	if err := json.Unmarshal([]byte(projectsJSON), &rec.Projects); err != nil {
		rec.Projects = nil
	}
	return &rec, nil
}

// ---------------------------------------------------------------------------
// Autocomplete value frequencies
// ---------------------------------------------------------------------------

// suggestValues lists the (field, value) pairs a record contributes to
// autocomplete. Values are lowercased so casing variants count as one value.
func suggestValues(rec *catalog.Record) map[string][]string {
	out := make(map[string][]string, 8)
	add := func(field, value string) {
		v := strings.ToLower(strings.TrimSpace(value))
		if v != "" {
			out[field] = append(out[field], v)
		}
	}
	add("name", rec.Name)
	add("source", rec.Source)
	add("format", rec.Format)
	add("type", rec.Type)
	add("storage", rec.Storage)
	for _, tag := range rec.Tags {
		add("tag", tag)
	}
	for _, project := range rec.Projects {
		add("project", project)
	}
	return out
}

func bumpValues(tx *sql.Tx, rec *catalog.Record, delta int) error {
	for field, values := range suggestValues(rec) {
		for _, value := range values {
			_, err := tx.Exec(`
				INSERT INTO field_values (field, value, freq) VALUES (?, ?, ?)
				ON CONFLICT(field, value) DO UPDATE SET freq = freq + excluded.freq
			`, field, value, delta)
			if err != nil {
				return fmt.Errorf("update value frequency %s=%s: %w", field, value, err)
			}
		}
	}
	return nil
}

func purgeEmptyValues(tx *sql.Tx) error {
	_, err := tx.Exec(`DELETE FROM field_values WHERE freq <= 0`)
	return err
}
