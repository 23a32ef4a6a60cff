package engine

import "time"

// EventType represents different lifecycle phases in query execution
type EventType string

const (
	EventStatementStart EventType = "statement_start"
	EventLexStart       EventType = "lex_start"
	EventLexEnd         EventType = "lex_end"
	EventParseStart     EventType = "parse_start"
	EventParseEnd       EventType = "parse_end"
	EventExecStart      EventType = "exec_start"
	EventExecEnd        EventType = "exec_end"
	EventQueued         EventType = "queued"
	EventTxBegin        EventType = "tx_begin"
	EventTxCommit       EventType = "tx_commit"
	EventTxRollback     EventType = "tx_rollback"
	EventTxEnd          EventType = "tx_end"
	EventStatementEnd   EventType = "statement_end"
)

// Event represents a lifecycle event in query execution
type Event struct {
	Type      EventType   // Type of event
	SessionID string      // Session that issued the statement
	User      string      // Authenticated user of the session
	TxID      string      // Open transaction, empty outside one
	Timestamp time.Time   // When the event occurred
	Data      interface{} // Phase-specific data (statement text, token count, result summary)
}

// StatementSummary is the Data of an EventStatementEnd
type StatementSummary struct {
	Statement    string
	Elapsed      time.Duration
	RowsAffected int
	RowsReturned int
	Err          error
}

// ExecSummary is the Data of an EventExecEnd
type ExecSummary struct {
	Kind         string // statement keyword, e.g. "SELECT"
	Object       string // table or user the statement touched
	RowsAffected int
	RowsReturned int
}

// Observer interface for event subscribers
// Observers receive events at major execution phases
type Observer interface {
	OnEvent(event Event)
}
