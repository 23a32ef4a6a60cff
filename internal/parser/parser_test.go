package parser

import (
	"errors"
	"reflect"
	"testing"

	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/parser/ast"
)

func mustParse(t *testing.T, input string) ast.Statement {
	t.Helper()
	stmt, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	return stmt
}

func TestParseSelect(t *testing.T) {
	stmt := mustParse(t, "SELECT id, name FROM users WHERE id = 1;")

	sel, ok := stmt.(*ast.SelectStatement)
	if !ok {
		t.Fatalf("Expected SelectStatement, got %T", stmt)
	}
	if !reflect.DeepEqual(sel.Columns, []string{"id", "name"}) {
		t.Errorf("Expected columns [id name], got %v", sel.Columns)
	}
	if sel.Table != "users" {
		t.Errorf("Expected table users, got %s", sel.Table)
	}
	if !sel.HasWhere || sel.Where != "id = 1" {
		t.Errorf("Expected where %q, got %q (has=%v)", "id = 1", sel.Where, sel.HasWhere)
	}
}

func TestParseSelectStar(t *testing.T) {
	sel := mustParse(t, "select * from Person;").(*ast.SelectStatement)
	if sel.Columns != nil {
		t.Errorf("Expected nil columns for *, got %v", sel.Columns)
	}
	if sel.Table != "Person" {
		t.Errorf("Expected table Person, got %s", sel.Table)
	}
	if sel.HasWhere {
		t.Error("Expected no WHERE clause")
	}
}

func TestParseSelectWhereIsRaw(t *testing.T) {
	tests := []struct {
		input string
		where string
	}{
		{"SELECT * FROM t WHERE name = 'Alice Smith';", "name = 'Alice Smith'"},
		{"SELECT * FROM t WHERE age>30;", "age>30"},
		{"SELECT * FROM t WHERE a = 'x;y' ;", "a = 'x;y'"},
		{"SELECT * FROM t WHERE ;", ""},
		{"SELECT * FROM t WHERE a = 1 AND b = 2;", "a = 1 AND b = 2"},
		{"SELECT * FROM t WHERE a = 'open;", "a = 'open"},
		{"SELECT * FROM t WHERE note = \"it's\";", "note = \"it's\""},
	}

	for _, tt := range tests {
		sel := mustParse(t, tt.input).(*ast.SelectStatement)
		if !sel.HasWhere {
			t.Errorf("%q: expected WHERE clause", tt.input)
		}
		if sel.Where != tt.where {
			t.Errorf("%q: expected where %q, got %q", tt.input, tt.where, sel.Where)
		}
	}
}

func TestParseSelectComparisonInList(t *testing.T) {
	_, err := Parse("SELECT age > FROM person;")
	if !errors.Is(err, dberrors.ErrPredicate) {
		t.Fatalf("Expected predicate error, got %v", err)
	}
}

func TestParseCreateTable(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		columns []string
	}{
		{"CREATE TABLE person (id, name, age);", "person", []string{"id", "name", "age"}},
		{"create table Person (id int, name varchar(20), age int);", "Person", []string{"id", "name", "age"}},
		{"CREATE TABLE t (price decimal(10, 2), qty);", "t", []string{"price", "qty"}},
		{"CREATE TABLE t (user, end);", "t", []string{"user", "end"}},
	}

	for _, tt := range tests {
		ct, ok := mustParse(t, tt.input).(*ast.CreateTableStatement)
		if !ok {
			t.Fatalf("%q: expected CreateTableStatement", tt.input)
		}
		if ct.Name != tt.name {
			t.Errorf("%q: expected name %s, got %s", tt.input, tt.name, ct.Name)
		}
		if !reflect.DeepEqual(ct.Columns, tt.columns) {
			t.Errorf("%q: expected columns %v, got %v", tt.input, tt.columns, ct.Columns)
		}
	}
}

func TestParseInsert(t *testing.T) {
	stmt := mustParse(t, "INSERT INTO person VALUES (1, 'Alice Smith', 30), (2, Bob, 25);")

	ins, ok := stmt.(*ast.InsertStatement)
	if !ok {
		t.Fatalf("Expected InsertStatement, got %T", stmt)
	}
	if ins.Table != "person" {
		t.Errorf("Expected table person, got %s", ins.Table)
	}
	want := [][]string{{"1", "Alice Smith", "30"}, {"2", "Bob", "25"}}
	if !reflect.DeepEqual(ins.Rows, want) {
		t.Errorf("Expected rows %v, got %v", want, ins.Rows)
	}
}

func TestParseInsertValueForms(t *testing.T) {
	tests := []struct {
		input string
		row   []string
	}{
		{"INSERT INTO t VALUES (bob@example.com);", []string{"bob@example.com"}},
		{"INSERT INTO t VALUES ('a, b');", []string{"a, b"}},
		{"INSERT INTO t VALUES ('a,b', c);", []string{"a,b", "c"}},
		{"INSERT INTO t VALUES ('O''Brien');", []string{"O'Brien"}},
		{"INSERT INTO t VALUES (1,,3);", []string{"1", "", "3"}},
		{"INSERT INTO t VALUES (new york, -4.5);", []string{"new york", "-4.5"}},
		{`INSERT INTO t VALUES ("it's");`, []string{"it's"}},
		{"INSERT INTO t VALUES (x = 1);", []string{"x = 1"}},
	}

	for _, tt := range tests {
		ins := mustParse(t, tt.input).(*ast.InsertStatement)
		if len(ins.Rows) != 1 || !reflect.DeepEqual(ins.Rows[0], tt.row) {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.row, ins.Rows)
		}
	}
}

func TestParseUsers(t *testing.T) {
	cu := mustParse(t, "CREATE USER alice IDENTIFIED BY s3cret;").(*ast.CreateUserStatement)
	if cu.Name != "alice" || cu.Password != "s3cret" {
		t.Errorf("Unexpected create user %+v", cu)
	}
	if cu.String() != "CREATE USER alice IDENTIFIED BY ***" {
		t.Errorf("Password leaked in String(): %s", cu.String())
	}

	du := mustParse(t, "drop user alice;").(*ast.DropUserStatement)
	if du.Name != "alice" {
		t.Errorf("Expected alice, got %s", du.Name)
	}
}

func TestParseDropTable(t *testing.T) {
	dt := mustParse(t, "DROP TABLE person;").(*ast.DropTableStatement)
	if dt.Name != "person" {
		t.Errorf("Expected person, got %s", dt.Name)
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		input string
		want  ast.Statement
	}{
		{"BEGIN TRANSACTION;", &ast.BeginStatement{}},
		{"end transaction;", &ast.EndStatement{}},
		{"COMMIT;", &ast.CommitStatement{}},
		{"rollback ;", &ast.RollbackStatement{}},
	}
	for _, tt := range tests {
		got := mustParse(t, tt.input)
		if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
			t.Errorf("%q: expected %T, got %T", tt.input, tt.want, got)
		}
		if !ast.IsTransactionControl(got) {
			t.Errorf("%q: expected transaction control", tt.input)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"SELECT * FROM person",
		"CREATE TABLE person (id, name)",
		"UPDATE person SET a = 1;",
		"CREATE INDEX idx;",
		"CREATE TABLE (id);",
		"CREATE TABLE t ();",
		"CREATE TABLE t (id, );",
		"CREATE TABLE t (id;",
		"CREATE TABLE my-table (id);",
		"INSERT INTO t VALUES ();",
		"INSERT INTO t VALUES (1, 2;",
		"INSERT INTO t (1);",
		"INSERT t VALUES (1);",
		"SELECT FROM t;",
		"SELECT * t;",
		"SELECT * FROM t extra;",
		"SELECT * FROM t; SELECT * FROM u;",
		"CREATE USER alice IDENTIFIED s3cret;",
		"CREATE USER 'alice' IDENTIFIED BY x;",
		"DROP USER;",
		"BEGIN;",
		"SELECT * FROM t WHERE a = 1",
		"",
	}

	for _, input := range tests {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("%q: expected error", input)
			continue
		}
		if !errors.Is(err, dberrors.ErrSyntax) {
			t.Errorf("%q: expected syntax error, got %v", input, err)
		}
	}
}

func TestMatchControl(t *testing.T) {
	tests := []struct {
		input string
		want  ast.Statement
	}{
		{"BEGIN TRANSACTION;", &ast.BeginStatement{}},
		{"  Begin   Transaction ;", &ast.BeginStatement{}},
		{"END TRANSACTION;", &ast.EndStatement{}},
		{"commit;", &ast.CommitStatement{}},
		{"COMMIT WORK;", &ast.CommitStatement{}},
		{"ROLLBACK;", &ast.RollbackStatement{}},
	}
	for _, tt := range tests {
		got, ok := MatchControl(tt.input)
		if !ok {
			t.Errorf("%q: expected control match", tt.input)
			continue
		}
		if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
			t.Errorf("%q: expected %T, got %T", tt.input, tt.want, got)
		}
	}

	for _, input := range []string{"BEGIN;", "SELECT * FROM t;", "committed;", "rollbackx;", "commitment;", "end;", ""} {
		if _, ok := MatchControl(input); ok {
			t.Errorf("%q: expected no control match", input)
		}
	}
}
