// Package transaction buffers statement text while a transaction is open.
//
// A Coordinator belongs to exactly one session. It never executes anything:
// Commit hands the buffered statements back to the caller for replay.
package transaction

import (
	"sync"
	"time"

	"github.com/google/uuid"

	dberrors "github.com/leengari/flatsql/internal/domain/errors"
)

// State of a Coordinator
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Transaction is the pending buffer of one open transaction
type Transaction struct {
	ID         string    // Unique transaction identifier
	StartTime  time.Time // When BEGIN was issued
	Statements []string  // Raw statement texts in enqueue order
}

func newTransaction() *Transaction {
	return &Transaction{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
	}
}

// Coordinator drives the Idle/Active state machine of one session
type Coordinator struct {
	mu sync.Mutex
	tx *Transaction
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Begin opens a transaction with an empty buffer. Calling Begin while a
// transaction is already open discards its buffer and starts over; rearmed
// reports that this happened.
func (c *Coordinator) Begin() (tx *Transaction, rearmed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rearmed = c.tx != nil
	c.tx = newTransaction()
	return c.tx, rearmed
}

// Enqueue appends a statement to the open transaction. It reports false when
// no transaction is open.
func (c *Coordinator) Enqueue(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return false
	}
	c.tx.Statements = append(c.tx.Statements, text)
	return true
}

// Commit closes the transaction and returns it so its statements can be
// replayed in order.
func (c *Coordinator) Commit() (*Transaction, error) {
	return c.close("commit")
}

// Rollback closes the transaction, discarding its statements
func (c *Coordinator) Rollback() (*Transaction, error) {
	return c.close("rollback")
}

// End closes the transaction without applying it. It behaves like Rollback.
func (c *Coordinator) End() (*Transaction, error) {
	return c.close("end transaction")
}

func (c *Coordinator) close(verb string) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return nil, dberrors.NotInTransaction(verb)
	}
	tx := c.tx
	c.tx = nil
	return tx, nil
}

// State reports whether a transaction is open
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return Idle
	}
	return Active
}

// Active reports whether a transaction is open
func (c *Coordinator) Active() bool {
	return c.State() == Active
}

// Pending returns a copy of the buffered statements
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	out := make([]string, len(c.tx.Statements))
	copy(out, c.tx.Statements)
	return out
}
