package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log. Used when Redis is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification",
		"recipient_id", n.RecipientID,
		"kind", string(n.Kind),
		"memo_id", n.MemoID,
		"subject", n.Subject,
	)
	return nil
}

func (l *LogNotifier) ArchivePending(ctx context.Context, memoID string, kind Kind) error {
	l.logger.DebugContext(ctx, "pending notifications archived",
		"memo_id", memoID,
		"kind", string(kind),
	)
	return nil
}
