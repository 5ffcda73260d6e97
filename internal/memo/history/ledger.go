// Package history maintains the append-only action log carried on each memo.
//
// The log doubles as the retry detector: a decided memo whose current decision
// was recorded by the calling admin is treated as an idempotent re-entry.
package history

import (
	"time"

	"memoflow/internal/memo/models"
)

// Append records an action on memo and returns the new entry.
func Append(memo *models.Memo, actor string, action models.HistoryAction, reason string, now time.Time) models.HistoryEntry {
	entry := models.HistoryEntry{
		Timestamp: now,
		Actor:     actor,
		Action:    action,
		Reason:    reason,
	}
	memo.History = append(memo.History, entry)
	return entry
}

// currentEpoch returns the entries recorded since the last rollback.
func currentEpoch(memo *models.Memo) []models.HistoryEntry {
	for i := len(memo.History) - 1; i >= 0; i-- {
		if memo.History[i].Action == models.ActionRolledBack {
			return memo.History[i+1:]
		}
	}
	return memo.History
}

// LastDecision returns the most recent approve/reject entry that has not been rolled back.
func LastDecision(memo *models.Memo) (models.HistoryEntry, bool) {
	epoch := currentEpoch(memo)
	for i := len(epoch) - 1; i >= 0; i-- {
		if epoch[i].Action.IsDecision() {
			return epoch[i], true
		}
	}
	return models.HistoryEntry{}, false
}

// DecidedBy reports whether actor recorded a decision that still stands.
func DecidedBy(memo *models.Memo, actor string) bool {
	for _, e := range currentEpoch(memo) {
		if e.Action.IsDecision() && e.Actor == actor {
			return true
		}
	}
	return false
}

// Decider returns the actor behind the standing decision, or "".
func Decider(memo *models.Memo) string {
	if e, ok := LastDecision(memo); ok {
		return e.Actor
	}
	return ""
}
