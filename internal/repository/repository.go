package repository

import (
	"time"

	"github.com/onboardhq/task-engine/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// UpdateFields applies a partial update to a task. The claim columns are
	// excluded at the SQL level; only Claim may touch them.
	UpdateFields(id string, fields map[string]interface{}) error

	// Claim atomically leases a task to an agent until expiresAt. The
	// condition (status open, lease absent or lapsed at now) and the write
	// are a single UPDATE statement, so of any number of concurrent
	// claimants exactly one observes claimed == true.
	Claim(id, agentID string, expiresAt, now time.Time) (bool, error)

	// Complete marks a task completed regardless of claim state.
	Complete(id string, now time.Time) error

	// ListClaimable returns every task that is claimable at now, in stable
	// creation order.
	ListClaimable(now time.Time) ([]models.Task, error)

	// CountStats returns aggregate counts over the whole task set.
	CountStats(now time.Time) (models.TaskStats, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	AssignedTo       *string
	TargetEmployeeID *string
	Search           string
	Overdue          bool
	Now              time.Time
	Page             int
	PageSize         int
}
