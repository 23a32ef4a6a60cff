package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/storage/tablestore"
	"github.com/leengari/flatsql/internal/storage/userstore"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	tables, err := tablestore.New(dir, nil)
	require.NoError(t, err)
	users, err := userstore.New(dir, nil)
	require.NoError(t, err)
	users.SetHashCost(bcrypt.MinCost)
	return New(executor.New(tables, users)), dir
}

func exec(t *testing.T, s *Session, sql string) *executor.Result {
	t.Helper()
	res, err := s.Execute(context.Background(), sql)
	require.NoError(t, err, sql)
	return res
}

func TestCreateThenSelectHeader(t *testing.T) {
	eng, dir := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")

	res := exec(t, s, "SELECT * FROM person;")
	assert.Equal(t, []string{"id", "name", "age"}, res.Columns)
	assert.Empty(t, res.Rows)

	_, err := os.Stat(filepath.Join(dir, "person.tbl"))
	assert.NoError(t, err)
}

func TestInsertSelectRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	exec(t, s, "INSERT INTO person VALUES (1,Alice,30),(2,Bob,25);")
	exec(t, s, "INSERT INTO person VALUES (3,'Carl Jr',40);")

	res := exec(t, s, "SELECT * FROM person;")
	assert.Equal(t, []data.Record{
		{"1", "Alice", "30"},
		{"2", "Bob", "25"},
		{"3", "Carl Jr", "40"},
	}, res.Rows)
}

func TestPredicates(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	exec(t, s, "INSERT INTO person VALUES (1,Alice,30),(2,Bob,25),(3,bob,5);")

	res := exec(t, s, "SELECT * FROM person WHERE age > 26;")
	assert.Equal(t, []data.Record{{"1", "Alice", "30"}}, res.Rows)

	res = exec(t, s, "SELECT id FROM person WHERE age > 20;")
	assert.Equal(t, []data.Record{{"1"}, {"2"}}, res.Rows)

	res = exec(t, s, `SELECT id FROM person WHERE name = "Bob";`)
	assert.Equal(t, []data.Record{{"2"}}, res.Rows)
}

func TestTransactionBuffering(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")
	other := eng.NewSession("bob")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	exec(t, s, "INSERT INTO person VALUES (1,Alice,30),(2,Bob,25);")

	exec(t, s, "BEGIN TRANSACTION;")
	res := exec(t, s, "INSERT INTO person VALUES (3,Carl,40);")
	assert.True(t, res.Queued)
	assert.Equal(t, "Query added to transaction", res.Message)

	res = exec(t, s, "SELECT * FROM person;")
	assert.True(t, res.Queued, "select inside a transaction is buffered too")
	assert.Len(t, exec(t, other, "SELECT * FROM person;").Rows, 2, "row 3 is not visible before commit")

	res = exec(t, s, "COMMIT;")
	require.Len(t, res.Children, 2)
	assert.Equal(t, 1, res.Children[0].RowsAffected)
	assert.Len(t, res.Children[1].Rows, 3, "replayed select sees the replayed insert")
	assert.False(t, s.InTransaction())

	rows := exec(t, s, "SELECT * FROM person;").Rows
	assert.Equal(t, data.Record{"3", "Carl", "40"}, rows[2])
}

func TestRollbackDiscards(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	exec(t, s, "begin transaction;")
	exec(t, s, "INSERT INTO person VALUES (3,Carl,40);")
	exec(t, s, "DROP TABLE person;")
	assert.Len(t, s.Pending(), 2)

	res := exec(t, s, "ROLLBACK;")
	assert.Contains(t, res.Message, "2 statement(s) discarded")
	assert.Empty(t, exec(t, s, "SELECT * FROM person;").Rows)
}

func TestEndTransactionDiscards(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id);")
	exec(t, s, "BEGIN TRANSACTION;")
	exec(t, s, "INSERT INTO person VALUES (1);")
	res := exec(t, s, "END TRANSACTION;")
	assert.Contains(t, res.Message, "stopped")
	assert.Empty(t, exec(t, s, "SELECT * FROM person;").Rows)
}

func TestBeginRearmsSilently(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id);")
	exec(t, s, "BEGIN TRANSACTION;")
	exec(t, s, "INSERT INTO person VALUES (1);")
	exec(t, s, "BEGIN TRANSACTION;")
	assert.Empty(t, s.Pending())

	exec(t, s, "INSERT INTO person VALUES (2);")
	exec(t, s, "COMMIT;")
	assert.Equal(t, []data.Record{{"2"}}, exec(t, s, "SELECT * FROM person;").Rows)
}

func TestControlWhileIdle(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	for _, sql := range []string{"COMMIT;", "ROLLBACK;", "END TRANSACTION;"} {
		res, err := s.Execute(context.Background(), sql)
		assert.True(t, errors.Is(err, dberrors.ErrNotInTransaction), sql)
		require.NotNil(t, res)
		assert.Equal(t, sql, res.Statement)
	}
}

func TestCommitContinuesPastFailures(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id);")
	exec(t, s, "BEGIN TRANSACTION;")
	exec(t, s, "INSERT INTO ghost VALUES (1);")
	exec(t, s, "this is not a statement;")
	exec(t, s, "INSERT INTO person VALUES (7);")

	res, err := s.Execute(context.Background(), "COMMIT;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))
	assert.True(t, errors.Is(err, dberrors.ErrSyntax))
	require.Len(t, res.Children, 3)
	assert.NotEmpty(t, res.Children[0].Error)
	assert.Contains(t, res.Message, "1 statement(s) applied, 2 failed")

	assert.Equal(t, []data.Record{{"7"}}, exec(t, s, "SELECT * FROM person;").Rows)
}

func TestMissingTerminator(t *testing.T) {
	eng, dir := newTestEngine(t)
	s := eng.NewSession("alice")

	for _, sql := range []string{
		"CREATE TABLE person (id,name)",
		"BEGIN TRANSACTION",
		"COMMIT",
	} {
		res, err := s.Execute(context.Background(), sql)
		assert.True(t, errors.Is(err, dberrors.ErrSyntax), sql)
		assert.NotEmpty(t, res.Error)
	}

	assert.False(t, s.InTransaction())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no state change")
}

func TestDropMissingTable(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	_, err := s.Execute(context.Background(), "DROP TABLE ghost;")
	assert.True(t, errors.Is(err, dberrors.ErrNotFound))

	var qe *dberrors.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "DROP TABLE ghost;", qe.Statement)
}

func TestMalformedPredicate(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	exec(t, s, "INSERT INTO person VALUES (1,Alice,30);")

	res, err := s.Execute(context.Background(), "SELECT age > FROM person;")
	assert.True(t, errors.Is(err, dberrors.ErrPredicate))
	assert.Empty(t, res.Rows)

	res, err = s.Execute(context.Background(), "SELECT * FROM person WHERE age >> 3;")
	assert.True(t, errors.Is(err, dberrors.ErrPredicate))
	assert.Equal(t, []string{"id", "name", "age"}, res.Columns)
	assert.Empty(t, res.Rows)

	assert.Len(t, exec(t, s, "SELECT * FROM person;").Rows, 1, "table unchanged")
}

func TestUnterminatedQuoteInWhere(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name);")
	exec(t, s, "INSERT INTO person VALUES (1,Alice);")

	res, err := s.Execute(context.Background(), "SELECT * FROM person WHERE name = 'Alice;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberrors.ErrPredicate), "got %v", err)
	assert.False(t, errors.Is(err, dberrors.ErrSyntax))
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Empty(t, res.Rows)

	// Quotes elsewhere in the statement are still checked by the lexer
	_, err = s.Execute(context.Background(), "INSERT INTO person VALUES (2,'Bob);")
	assert.True(t, errors.Is(err, dberrors.ErrSyntax))
}

func TestControlVerbNeedsWholeWord(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	_, err := s.Execute(context.Background(), "rollbackx;")
	assert.True(t, errors.Is(err, dberrors.ErrSyntax))

	exec(t, s, "BEGIN TRANSACTION;")
	res := exec(t, s, "rollbackx;")
	assert.True(t, res.Queued, "a malformed verb is buffered, not a rollback")
	assert.True(t, s.InTransaction())
}

func TestQuotedCommaStaysOneValue(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name);")
	exec(t, s, "INSERT INTO person VALUES (1,'Smith, Ann');")
	assert.Equal(t, []data.Record{{"1", "Smith, Ann"}}, exec(t, s, "SELECT * FROM person;").Rows)

	_, err := s.Execute(context.Background(), "INSERT INTO person VALUES ('a,b');")
	assert.True(t, errors.Is(err, dberrors.ErrExecution), "one value against a two-column header")
}

func TestInsertArityMismatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")

	exec(t, s, "CREATE TABLE person (id,name,age);")
	_, err := s.Execute(context.Background(), "INSERT INTO person VALUES (1,Alice);")
	assert.True(t, errors.Is(err, dberrors.ErrExecution))
	assert.Contains(t, err.Error(), "has 2 values")
	assert.Empty(t, exec(t, s, "SELECT * FROM person;").Rows)
}

func TestSessionsDoNotShareTransactions(t *testing.T) {
	eng, _ := newTestEngine(t)
	a := eng.NewSession("alice")
	b := eng.NewSession("bob")

	exec(t, a, "CREATE TABLE person (id);")
	exec(t, a, "BEGIN TRANSACTION;")
	assert.False(t, b.InTransaction())

	res := exec(t, b, "INSERT INTO person VALUES (1);")
	assert.False(t, res.Queued)
	assert.Equal(t, 1, res.RowsAffected)
}

func TestElapsedReported(t *testing.T) {
	eng, _ := newTestEngine(t)
	s := eng.NewSession("alice")
	observer := &MockObserver{}
	eng.AddObserver(observer)

	res := exec(t, s, "CREATE TABLE person (id);")
	assert.Greater(t, int64(res.Elapsed), int64(0))

	last := observer.Events[len(observer.Events)-1]
	assert.Equal(t, EventStatementEnd, last.Type)
	assert.Equal(t, "alice", last.User)
	summary, ok := last.Data.(StatementSummary)
	require.True(t, ok)
	assert.Equal(t, res.Elapsed, summary.Elapsed)
}
