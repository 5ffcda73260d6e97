package handler

import "memoflow/internal/memo/models"

type deliveryList struct {
	Deliveries []*models.Memo `json:"deliveries"`
	Count      int            `json:"count"`
}

type rollbackLogList struct {
	RollbackLogs []*models.RollbackLogEntry `json:"rollback_logs"`
	Count        int                        `json:"count"`
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
