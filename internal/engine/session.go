package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/parser"
	"github.com/leengari/flatsql/internal/parser/ast"
	"github.com/leengari/flatsql/internal/parser/lexer"
	"github.com/leengari/flatsql/internal/transaction"
)

// Session is one logical client of the engine. Statements are processed one
// at a time; a Session must not be used from several goroutines at once.
type Session struct {
	ID     string
	User   string
	engine *Engine
	tx     *transaction.Coordinator
}

// InTransaction reports whether statements are currently being buffered
func (s *Session) InTransaction() bool {
	return s.tx.Active()
}

// Pending returns the statements buffered by the open transaction
func (s *Session) Pending() []string {
	return s.tx.Pending()
}

// Execute processes one raw statement.
//
// The returned Result is never nil: failures still report the statement and
// its elapsed time. A selection whose predicate was rejected carries its
// header and no rows alongside the error.
func (s *Session) Execute(ctx context.Context, text string) (*executor.Result, error) {
	start := time.Now()
	text = strings.TrimSpace(text)

	ctx, span := s.engine.tracer.Start(ctx, "flatsql.statement", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("enduser.id", s.User),
		attribute.Bool("transaction.active", s.tx.Active()),
	))
	defer span.End()

	s.notify(EventStatementStart, text)

	res, err := s.process(ctx, text)
	if res == nil {
		res = &executor.Result{}
	}
	res.Statement = text
	res.Elapsed = time.Since(start)

	if err != nil {
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dberrors.KindOf(err)))
	}
	span.SetAttributes(attribute.Int("rows.affected", res.RowsAffected), attribute.Int("rows.returned", len(res.Rows)))

	s.notify(EventStatementEnd, StatementSummary{
		Statement:    text,
		Elapsed:      res.Elapsed,
		RowsAffected: res.RowsAffected,
		RowsReturned: len(res.Rows),
		Err:          err,
	})
	return res, err
}

func (s *Session) process(ctx context.Context, text string) (*executor.Result, error) {
	// 1. Terminator
	if !strings.HasSuffix(text, ";") {
		return nil, dberrors.Syntax("missing terminator, add ; at the end").WithStatement(text)
	}

	// 2. Transaction control, honoured even inside a transaction
	if ctl, ok := parser.MatchControl(text); ok {
		return s.control(ctx, text, ctl)
	}

	// 3. Buffer while a transaction is open; nothing is validated until replay
	if s.tx.Enqueue(text) {
		s.notify(EventQueued, text)
		return &executor.Result{Message: "Query added to transaction", Queued: true}, nil
	}

	// 4. Parse and execute
	res, err := s.run(text)
	if err != nil {
		return res, dberrors.Attach(text, err)
	}
	return res, nil
}

func (s *Session) run(text string) (*executor.Result, error) {
	s.notify(EventLexStart, text)
	tokens, err := lexer.TokenizeStatement(text)
	if err != nil {
		return nil, dberrors.Syntax("%v", err)
	}
	s.notify(EventLexEnd, len(tokens))

	s.notify(EventParseStart, nil)
	stmt, err := parser.New(text, tokens).Parse()
	if err != nil {
		return nil, err
	}
	s.notify(EventParseEnd, fmt.Sprintf("%T", stmt))

	if ast.IsTransactionControl(stmt) {
		// MatchControl catches every well-formed control statement first
		return nil, dberrors.Syntax("cannot parse statement")
	}

	s.notify(EventExecStart, stmt.String())
	res, err := s.execute(stmt)
	if res != nil {
		s.notify(EventExecEnd, ExecSummary{
			Kind:         stmt.TokenLiteral(),
			Object:       objectOf(stmt),
			RowsAffected: res.RowsAffected,
			RowsReturned: len(res.Rows),
		})
	}
	return res, err
}

// execute runs stmt, turning a panic into an execution error
func (s *Session) execute(stmt ast.Statement) (res *executor.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("statement panicked", slog.String("session", s.ID), slog.Any("panic", r))
			res = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.engine.exec.Execute(stmt)
}

// control runs a transaction verb. Replay failures come back joined and
// already carry their own statement text.
func (s *Session) control(ctx context.Context, text string, stmt ast.Statement) (*executor.Result, error) {
	switch stmt.(type) {
	case *ast.BeginStatement:
		tx, rearmed := s.tx.Begin()
		if rearmed {
			slog.Warn("transaction restarted, pending statements discarded",
				slog.String("session", s.ID), slog.String("tx_id", tx.ID))
		}
		s.notifyTx(EventTxBegin, tx.ID, nil)
		return &executor.Result{Message: "Transaction started"}, nil

	case *ast.CommitStatement:
		tx, err := s.tx.Commit()
		if err != nil {
			return nil, dberrors.Attach(text, err)
		}
		return s.replay(ctx, tx)

	case *ast.RollbackStatement:
		tx, err := s.tx.Rollback()
		if err != nil {
			return nil, dberrors.Attach(text, err)
		}
		s.notifyTx(EventTxRollback, tx.ID, len(tx.Statements))
		return &executor.Result{
			Message: fmt.Sprintf("Transaction rolled back, %d statement(s) discarded", len(tx.Statements)),
		}, nil

	case *ast.EndStatement:
		tx, err := s.tx.End()
		if err != nil {
			return nil, dberrors.Attach(text, err)
		}
		s.notifyTx(EventTxEnd, tx.ID, len(tx.Statements))
		return &executor.Result{
			Message: fmt.Sprintf("Transaction stopped, %d statement(s) discarded", len(tx.Statements)),
		}, nil
	}
	return nil, fmt.Errorf("unsupported control statement: %T", stmt)
}

// replay executes the committed statements in enqueue order through the
// normal pipeline. A failing statement does not stop the ones after it.
func (s *Session) replay(ctx context.Context, tx *transaction.Transaction) (*executor.Result, error) {
	res := &executor.Result{}
	var errs []error
	for _, text := range tx.Statements {
		child, err := s.Execute(ctx, text)
		res.Children = append(res.Children, child)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.RowsAffected += child.RowsAffected
	}

	s.notifyTx(EventTxCommit, tx.ID, len(tx.Statements))

	applied := len(tx.Statements) - len(errs)
	res.Message = fmt.Sprintf("Transaction committed, %d statement(s) applied", applied)
	if len(errs) > 0 {
		res.Message += fmt.Sprintf(", %d failed", len(errs))
		return res, errors.Join(errs...)
	}
	return res, nil
}

func (s *Session) notify(t EventType, data interface{}) {
	s.engine.notify(Event{Type: t, SessionID: s.ID, User: s.User, Data: data})
}

func (s *Session) notifyTx(t EventType, txID string, data interface{}) {
	s.engine.notify(Event{Type: t, SessionID: s.ID, User: s.User, TxID: txID, Data: data})
}

func objectOf(stmt ast.Statement) string {
	switch st := stmt.(type) {
	case *ast.CreateTableStatement:
		return st.Name
	case *ast.DropTableStatement:
		return st.Name
	case *ast.CreateUserStatement:
		return st.Name
	case *ast.DropUserStatement:
		return st.Name
	case *ast.InsertStatement:
		return st.Table
	case *ast.SelectStatement:
		return st.Table
	}
	return ""
}
