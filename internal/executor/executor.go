package executor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leengari/flatsql/internal/domain/data"
	"github.com/leengari/flatsql/internal/parser/ast"
	"github.com/leengari/flatsql/internal/storage/tablestore"
	"github.com/leengari/flatsql/internal/storage/userstore"
)

// Executor runs parsed statements against the table and user stores.
// It is stateless apart from the stores, so one Executor serves every session.
type Executor struct {
	tables *tablestore.Store
	users  *userstore.Store
}

func New(tables *tablestore.Store, users *userstore.Store) *Executor {
	return &Executor{tables: tables, users: users}
}

// Tables exposes the table store for catalog lookups
func (e *Executor) Tables() *tablestore.Store {
	return e.tables
}

// Users exposes the user registry
func (e *Executor) Users() *userstore.Store {
	return e.users
}

// Execute runs one data or definition statement. Transaction control is
// handled by the session and is rejected here.
func (e *Executor) Execute(stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		return e.executeCreateTable(s)
	case *ast.DropTableStatement:
		return e.executeDropTable(s)
	case *ast.CreateUserStatement:
		return e.executeCreateUser(s)
	case *ast.DropUserStatement:
		return e.executeDropUser(s)
	case *ast.InsertStatement:
		return e.executeInsert(s)
	case *ast.SelectStatement:
		return e.executeSelect(s)
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (e *Executor) executeCreateTable(stmt *ast.CreateTableStatement) (*Result, error) {
	if err := e.tables.Create(stmt.Name, stmt.Columns); err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Table '%s' created with columns: %s", stmt.Name, strings.Join(stmt.Columns, ", ")),
	}, nil
}

func (e *Executor) executeDropTable(stmt *ast.DropTableStatement) (*Result, error) {
	if err := e.tables.Drop(stmt.Name); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("Table '%s' dropped", stmt.Name)}, nil
}

func (e *Executor) executeCreateUser(stmt *ast.CreateUserStatement) (*Result, error) {
	u, err := e.users.Add(stmt.Name, stmt.Password, "")
	if err != nil {
		return nil, err
	}
	return &Result{
		Message:      fmt.Sprintf("User '%s' added with id %d", u.Username, u.ID),
		RowsAffected: 1,
	}, nil
}

func (e *Executor) executeDropUser(stmt *ast.DropUserStatement) (*Result, error) {
	if err := e.users.Remove(stmt.Name); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("User '%s' dropped", stmt.Name), RowsAffected: 1}, nil
}

func (e *Executor) executeInsert(stmt *ast.InsertStatement) (*Result, error) {
	rows := make([]data.Record, len(stmt.Rows))
	for i, r := range stmt.Rows {
		rows[i] = data.Record(r)
	}

	n, err := e.tables.Insert(stmt.Table, rows)
	if err != nil {
		return nil, err
	}
	return &Result{
		Message:      fmt.Sprintf("INSERT %d into '%s'", n, stmt.Table),
		RowsAffected: n,
	}, nil
}

func (e *Executor) executeSelect(stmt *ast.SelectStatement) (*Result, error) {
	rs, err := e.tables.Select(stmt.Table, stmt.Columns, stmt.Where, stmt.HasWhere)
	if rs == nil {
		return nil, err
	}

	result := &Result{
		Columns: rs.Columns,
		Rows:    rs.Rows,
	}
	if err != nil {
		// Malformed predicate: the header survives, no rows match
		slog.Debug("predicate rejected", slog.String("table", stmt.Table), slog.String("where", stmt.Where))
		result.Message = "Returned 0 rows"
		return result, err
	}
	result.Message = fmt.Sprintf("Returned %d rows", len(rs.Rows))
	return result, nil
}
