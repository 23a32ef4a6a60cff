package engine

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/transaction"
)

const tracerName = "github.com/leengari/flatsql/internal/engine"

// Engine is the main entry point for the database system. It is shared by
// every session; per-session state lives in Session.
type Engine struct {
	exec      *executor.Executor
	tracer    trace.Tracer
	mu        sync.RWMutex
	observers []Observer // Observers for lifecycle events
}

// New creates a new Engine instance
func New(exec *executor.Executor) *Engine {
	return &Engine{
		exec:      exec,
		tracer:    otel.Tracer(tracerName),
		observers: make([]Observer, 0),
	}
}

// Executor returns the statement executor
func (e *Engine) Executor() *executor.Executor {
	return e.exec
}

// NewSession opens a session for user. Each session owns its transaction
// buffer, so sessions never see each other's pending statements.
func (e *Engine) NewSession(user string) *Session {
	return &Session{
		ID:     uuid.New().String(),
		User:   user,
		engine: e,
		tx:     transaction.NewCoordinator(),
	}
}

// ListTables returns the names of all tables
func (e *Engine) ListTables() ([]string, error) {
	return e.exec.Tables().List()
}

// AddObserver registers an observer to receive lifecycle events
func (e *Engine) AddObserver(observer Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(slices.Clip(e.observers), observer)
}

// RemoveObserver unregisters an observer
func (e *Engine) RemoveObserver(observer Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// notify iterates without the lock, so the backing array is never modified in place
	for i, o := range e.observers {
		if o == observer {
			e.observers = slices.Delete(slices.Clone(e.observers), i, i+1)
			return
		}
	}
}

// notify sends an event to all registered observers
func (e *Engine) notify(event Event) {
	event.Timestamp = time.Now()

	e.mu.RLock()
	observers := e.observers
	e.mu.RUnlock()

	for _, observer := range observers {
		observer.OnEvent(event)
	}
}
