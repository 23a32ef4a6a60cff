package tablestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/query/filter"
	"github.com/leengari/flatsql/internal/storage/codec"
)

// Extension is the file suffix of a table resource
const Extension = ".tbl"

// Store owns one resource file per table under a root directory.
//
// Every load-mutate-store sequence runs under the table's lock, so concurrent
// sessions cannot lose each other's writes.
type Store struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	root  string
	codec *codec.Codec
}

// New creates a store rooted at dir, creating the directory if needed
func New(dir string, c *codec.Codec) (*Store, error) {
	if c == nil {
		c = codec.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberrors.IO("create data directory", dir, err)
	}
	return &Store{
		locks: make(map[string]*sync.RWMutex),
		root:  dir,
		codec: c,
	}, nil
}

// Root returns the storage directory
func (s *Store) Root() string {
	return s.root
}

// Key case-folds a table name into its resource key
func (s *Store) Key(name string) string {
	return Fold(strings.TrimSpace(name))
}

// Fold applies Unicode case folding. Casers are not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key+Extension)
}

// lock returns the per-table lock, creating it on first use
func (s *Store) lock(key string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[key] = l
	}
	return l
}

// Exists reports whether the table's resource exists
func (s *Store) Exists(name string) (bool, error) {
	key := s.Key(name)
	l := s.lock(key)
	l.RLock()
	defer l.RUnlock()
	return s.exists(key)
}

func (s *Store) exists(key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, dberrors.IO("stat", s.path(key), err)
}

// Create writes a new resource whose only record is the header
func (s *Store) Create(name string, columns []string) error {
	if len(columns) == 0 {
		return dberrors.Syntax("table '%s' needs at least one column", name)
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		k := Fold(col)
		if seen[k] {
			return dberrors.Syntax("duplicate column '%s' in table '%s'", col, name)
		}
		seen[k] = true
	}

	key := s.Key(name)
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	ok, err := s.exists(key)
	if err != nil {
		return err
	}
	if ok {
		return dberrors.AlreadyExists("table", name)
	}

	if err := s.write(key, []data.Record{columns}); err != nil {
		return err
	}

	slog.Debug("table resource created", slog.String("table", key), slog.Int("columns", len(columns)))
	return nil
}

// Drop deletes the table's resource
func (s *Store) Drop(name string) error {
	key := s.Key(name)
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	ok, err := s.exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return dberrors.NotFound("table", name)
	}

	if err := os.Remove(s.path(key)); err != nil {
		return dberrors.IO("remove", s.path(key), err)
	}

	slog.Debug("table resource removed", slog.String("table", key))
	return nil
}

// Insert appends rows to the table and rewrites its resource.
// Every row must match the header width; on mismatch nothing is written.
func (s *Store) Insert(name string, rows []data.Record) (int, error) {
	key := s.Key(name)
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	t, err := s.load(key, name)
	if err != nil {
		return 0, err
	}

	for i, row := range rows {
		if len(row) != len(t.Header) {
			return 0, fmt.Errorf("row %d has %d values, table '%s' has %d columns",
				i+1, len(row), name, len(t.Header))
		}
	}

	for _, row := range rows {
		t.Rows = append(t.Rows, row.Copy())
	}

	if err := s.write(key, t.Records()); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Load reads the whole table
func (s *Store) Load(name string) (*data.Table, error) {
	key := s.Key(name)
	l := s.lock(key)
	l.RLock()
	defer l.RUnlock()
	return s.load(key, name)
}

// Select loads the table and hands projection and filtering to the filter engine
func (s *Store) Select(name string, columns []string, where string, hasWhere bool) (*filter.ResultSet, error) {
	t, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return filter.Apply(t, columns, where, hasWhere)
}

// Columns returns the header of a table
func (s *Store) Columns(name string) ([]string, error) {
	t, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return t.Header, nil
}

// List returns the names of all tables, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, dberrors.IO("list", s.root, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) load(key, name string) (*data.Table, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberrors.NotFound("table", name)
		}
		return nil, dberrors.IO("read", s.path(key), err)
	}

	records, err := s.codec.Unmarshal(raw)
	if err != nil {
		return nil, dberrors.IO("decode", s.path(key), err)
	}
	if len(records) == 0 {
		return nil, dberrors.IO("decode", s.path(key), fmt.Errorf("missing header record"))
	}
	return data.FromRecords(key, records), nil
}

// write replaces the resource atomically: temp file, fsync, rename
func (s *Store) write(key string, records []data.Record) error {
	return WriteFileAtomic(s.path(key), s.codec.Marshal(records))
}

// WriteFileAtomic replaces path with content so readers see either the old or
// the new file, never a truncated one
func WriteFileAtomic(path string, content []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return dberrors.IO("create temp", tmpPath, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return dberrors.IO("write temp", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return dberrors.IO("sync temp", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return dberrors.IO("close temp", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return dberrors.IO("rename temp to", path, err)
	}
	return nil
}
