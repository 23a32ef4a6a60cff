package tablestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestCreateWritesHeader(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Create("Person", []string{"id", "name", "age"}))

	raw, err := os.ReadFile(filepath.Join(s.Root(), "person"+Extension))
	require.NoError(t, err)
	assert.Equal(t, "id-_-name-_-age\n", string(raw))

	cols, err := s.Columns("PERSON")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, cols)
}

func TestCreateExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("person", []string{"id"}))

	err := s.Create("PERSON", []string{"other"})
	assert.True(t, errors.Is(err, dberrors.ErrAlreadyExists))

	cols, err := s.Columns("person")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, cols, "existing table must be untouched")
}

func TestCreateRejectsDuplicateColumns(t *testing.T) {
	s := newTestStore(t)

	err := s.Create("person", []string{"id", "ID"})
	assert.True(t, errors.Is(err, dberrors.ErrSyntax))

	ok, err := s.Exists("person")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDrop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("person", []string{"id"}))

	require.NoError(t, s.Drop("Person"))

	ok, err := s.Exists("person")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Drop("person")
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
}

func TestInsertAndLoad(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("person", []string{"id", "name"}))

	n, err := s.Insert("person", []data.Record{{"1", "Alice"}, {"2", "Bob"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Insert("person", []data.Record{{"3", "Carl-_-Jr"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tbl, err := s.Load("person")
	require.NoError(t, err)
	assert.Equal(t, data.Record{"id", "name"}, tbl.Header)
	assert.Equal(t, []data.Record{{"1", "Alice"}, {"2", "Bob"}, {"3", "Carl-_-Jr"}}, tbl.Rows)
}

func TestInsertArityMismatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("person", []string{"id", "name"}))

	_, err := s.Insert("person", []data.Record{{"1", "Alice"}, {"2"}})
	require.Error(t, err)

	tbl, err := s.Load("person")
	require.NoError(t, err)
	assert.Empty(t, tbl.Rows, "no row may be written when one row is invalid")
}

func TestInsertMissingTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Insert("ghost", []data.Record{{"1"}})
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
}

func TestSelectDelegatesToFilter(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("person", []string{"id", "name", "age"}))
	_, err := s.Insert("person", []data.Record{{"1", "Alice", "30"}, {"2", "Bob", "25"}})
	require.NoError(t, err)

	rs, err := s.Select("person", []string{"name"}, "age > 26", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, rs.Columns)
	assert.Equal(t, []data.Record{{"Alice"}}, rs.Rows)

	_, err = s.Select("ghost", nil, "", false)
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("b", []string{"x"}))
	require.NoError(t, s.Create("A", []string{"x"}))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0644))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestConcurrentInsertsAreSerialized(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create("counter", []string{"n"}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Insert("counter", []data.Record{{fmt.Sprint(i)}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tbl, err := s.Load("counter")
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, writers)
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x"+Extension)

	require.NoError(t, WriteFileAtomic(path, []byte("a\n")))
	require.NoError(t, WriteFileAtomic(path, []byte("b\n")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(raw))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
