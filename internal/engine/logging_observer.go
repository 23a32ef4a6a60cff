package engine

import (
	"log/slog"

	dberrors "github.com/leengari/flatsql/internal/domain/errors"
)

// LoggingObserver logs lifecycle events using structured logging.
// Phase events go to debug; executed statements are written as audit lines
// carrying the session user.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements the Observer interface
func (lo *LoggingObserver) OnEvent(event Event) {
	base := []any{
		slog.String("event", string(event.Type)),
		slog.String("session", event.SessionID),
		slog.String("by", event.User),
	}
	if event.TxID != "" {
		base = append(base, slog.String("tx_id", event.TxID))
	}

	switch data := event.Data.(type) {
	case ExecSummary:
		lo.logger.Info("audit", append(base,
			slog.String("statement", data.Kind),
			slog.String("object", data.Object),
			slog.Int("rows_affected", data.RowsAffected),
			slog.Int("rows_returned", data.RowsReturned),
		)...)
	case StatementSummary:
		attrs := append(base,
			slog.String("query", data.Statement),
			slog.Duration("elapsed", data.Elapsed),
		)
		if data.Err != nil {
			lo.logger.Warn("query_failed", append(attrs,
				slog.String("kind", string(dberrors.KindOf(data.Err))),
				slog.String("error", data.Err.Error()),
			)...)
			return
		}
		lo.logger.Debug("query_lifecycle", attrs...)
	default:
		lo.logger.Debug("query_lifecycle", append(base, slog.Any("data", event.Data))...)
	}
}
