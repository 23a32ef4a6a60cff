package ast

import (
	"bytes"
	"strings"
)

// Node is the base interface for all AST nodes
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents one parsed unit of the query language
type Statement interface {
	Node
	statementNode()
}

// IsTransactionControl reports whether stmt is BEGIN/END TRANSACTION, COMMIT or ROLLBACK
func IsTransactionControl(stmt Statement) bool {
	switch stmt.(type) {
	case *BeginStatement, *EndStatement, *CommitStatement, *RollbackStatement:
		return true
	}
	return false
}

// BeginStatement: BEGIN TRANSACTION
type BeginStatement struct{}

func (s *BeginStatement) statementNode()       {}
func (s *BeginStatement) TokenLiteral() string { return "BEGIN" }
func (s *BeginStatement) String() string       { return "BEGIN TRANSACTION" }

// EndStatement: END TRANSACTION
type EndStatement struct{}

func (s *EndStatement) statementNode()       {}
func (s *EndStatement) TokenLiteral() string { return "END" }
func (s *EndStatement) String() string       { return "END TRANSACTION" }

// CommitStatement: COMMIT
type CommitStatement struct{}

func (s *CommitStatement) statementNode()       {}
func (s *CommitStatement) TokenLiteral() string { return "COMMIT" }
func (s *CommitStatement) String() string       { return "COMMIT" }

// RollbackStatement: ROLLBACK
type RollbackStatement struct{}

func (s *RollbackStatement) statementNode()       {}
func (s *RollbackStatement) TokenLiteral() string { return "ROLLBACK" }
func (s *RollbackStatement) String() string       { return "ROLLBACK" }

// CreateTableStatement: CREATE TABLE name (col1, col2)
type CreateTableStatement struct {
	Name    string
	Columns []string
}

func (s *CreateTableStatement) statementNode()       {}
func (s *CreateTableStatement) TokenLiteral() string { return "CREATE" }
func (s *CreateTableStatement) String() string {
	return "CREATE TABLE " + s.Name + " (" + strings.Join(s.Columns, ", ") + ")"
}

// DropTableStatement: DROP TABLE name
type DropTableStatement struct {
	Name string
}

func (s *DropTableStatement) statementNode()       {}
func (s *DropTableStatement) TokenLiteral() string { return "DROP" }
func (s *DropTableStatement) String() string       { return "DROP TABLE " + s.Name }

// CreateUserStatement: CREATE USER name IDENTIFIED BY password
type CreateUserStatement struct {
	Name     string
	Password string
}

func (s *CreateUserStatement) statementNode()       {}
func (s *CreateUserStatement) TokenLiteral() string { return "CREATE" }

// String never prints the password
func (s *CreateUserStatement) String() string {
	return "CREATE USER " + s.Name + " IDENTIFIED BY ***"
}

// DropUserStatement: DROP USER name
type DropUserStatement struct {
	Name string
}

func (s *DropUserStatement) statementNode()       {}
func (s *DropUserStatement) TokenLiteral() string { return "DROP" }
func (s *DropUserStatement) String() string       { return "DROP USER " + s.Name }

// InsertStatement: INSERT INTO table VALUES (v1, v2), (v3, v4)
type InsertStatement struct {
	Table string
	Rows  [][]string
}

func (s *InsertStatement) statementNode()       {}
func (s *InsertStatement) TokenLiteral() string { return "INSERT" }
func (s *InsertStatement) String() string {
	var out bytes.Buffer
	out.WriteString("INSERT INTO ")
	out.WriteString(s.Table)
	out.WriteString(" VALUES ")
	for i, row := range s.Rows {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString("(")
		out.WriteString(strings.Join(row, ", "))
		out.WriteString(")")
	}
	return out.String()
}

// SelectStatement: SELECT col1, col2 FROM table WHERE ...
//
// Columns is nil for SELECT *. Where holds the raw predicate text; it is
// interpreted by the filter engine, not by the parser.
type SelectStatement struct {
	Table    string
	Columns  []string
	Where    string
	HasWhere bool
}

func (s *SelectStatement) statementNode()       {}
func (s *SelectStatement) TokenLiteral() string { return "SELECT" }
func (s *SelectStatement) String() string {
	var out bytes.Buffer
	out.WriteString("SELECT ")
	if s.Columns == nil {
		out.WriteString("*")
	} else {
		out.WriteString(strings.Join(s.Columns, ", "))
	}
	out.WriteString(" FROM ")
	out.WriteString(s.Table)
	if s.HasWhere {
		out.WriteString(" WHERE ")
		out.WriteString(s.Where)
	}
	return out.String()
}
