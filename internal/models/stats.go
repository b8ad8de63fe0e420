package models

// TaskStats holds aggregate task counts for monitoring. Overdue is computed
// at read time from due dates, not stored.
type TaskStats struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}
