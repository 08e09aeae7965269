package engine

import (
	"log/slog"

	"github.com/leengari/dyntable/internal/domain/event"
)

// LoggingObserver is a simple observer that logs all events using structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a new logging observer. A nil logger uses slog.Default().
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent implements the event.Observer interface
func (lo *LoggingObserver) OnEvent(ev event.Event) {
	lo.logger.Info("table_event",
		"event", ev.Type,
		"table", ev.Table,
		"tx_id", ev.TxID,
		"timestamp", ev.Timestamp,
		"data", ev.Data,
	)
}
