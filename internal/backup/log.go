package backup

import (
	"context"
	"log/slog"
)

// LogExporter records exports in the log. Used when no brokers are configured.
type LogExporter struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

func (l *LogExporter) Export(ctx context.Context, delivered DeliveredMemo) error {
	l.logger.InfoContext(ctx, "backup export skipped, no brokers configured",
		"delivery_id", delivered.Memo.ID,
		"original_memo_id", delivered.Memo.Metadata.OriginalMemoID(),
		"recipient_id", delivered.Recipient.ID,
	)
	return nil
}
