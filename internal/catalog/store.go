package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"gopkg.in/yaml.v3"
)

const cardExt = ".yaml"

// Store reads and writes canonical record cards under one directory of a
// filesystem. The filesystem is abstract so tests run against an in-memory FS
// and the CLI against the host disk.
type Store struct {
	mu  sync.Mutex
	fs  hackpadfs.FS
	dir string
}

// NewStore creates a card store rooted at dir, creating the directory if
// missing.
func NewStore(fsys hackpadfs.FS, dir string) (*Store, error) {
	if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir %s: %w", dir, err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

func (s *Store) cardPath(id string) string {
	return path.Join(s.dir, id+cardExt)
}

// Load reads one record card by identifier.
func (s *Store) Load(id string) (*Record, error) {
	data, err := hackpadfs.ReadFile(s.fs, s.cardPath(id))
	if err != nil {
		return nil, fmt.Errorf("read card %s: %w", id, err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse card %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes a record card, replacing any existing one.
func (s *Store) Save(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode card %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := hackpadfs.WriteFullFile(s.fs, s.cardPath(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("write card %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a record card. Deleting a missing card succeeds.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := hackpadfs.Remove(s.fs, s.cardPath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// All reads every card in the directory, sorted by identifier. Unreadable
// cards are collected as errors rather than aborting the scan, so reindexing
// survives a single corrupt file.
func (s *Store) All() ([]Record, []error) {
	entries, err := fs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scan catalog dir %s: %w", s.dir, err)}
	}

	var records []Record
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cardExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), cardExt)
		rec, err := s.Load(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, errs
}
