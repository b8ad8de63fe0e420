package repository

import (
	"time"

	"github.com/onboardhq/task-engine/internal/models"
	"gorm.io/gorm"
)

// claim columns are only ever written by Claim's conditional update; every
// other write path omits them.
var claimColumns = []string{"claimed_by_agent_id", "claim_expires_at"}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id string, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.TargetEmployeeID != nil {
		query = query.Where("tasks.target_employee_id = ?", *filter.TargetEmployeeID)
	}
	if filter.Overdue {
		query = query.Where(
			"tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?",
			filter.Now, models.TaskStatusCompleted,
		)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("tasks.title LIKE ? OR tasks.description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.updated_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateFields applies a partial update, keeping the claim columns out of
// reach of general edits.
func (r *GormTaskRepository) UpdateFields(id string, fields map[string]interface{}) error {
	for _, col := range claimColumns {
		delete(fields, col)
	}

	return r.db.Model(&models.Task{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Claim performs the lease acquisition as a single conditional UPDATE. The
// row predicate re-checks claimability at the instant of the write, so a
// recommend-then-claim caller racing another agent loses cleanly with
// claimed == false instead of double-claiming.
func (r *GormTaskRepository) Claim(id, agentID string, expiresAt, now time.Time) (bool, error) {
	res := r.db.Model(&models.Task{}).
		Where("id = ? AND status = ? AND (claim_expires_at IS NULL OR claim_expires_at < ?)",
			id, models.TaskStatusOpen, now).
		Updates(map[string]interface{}{
			"claimed_by_agent_id": agentID,
			"claim_expires_at":    expiresAt,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// Complete marks a task completed. Unconditional: finishing work is
// authoritative and is never blocked by lease bookkeeping.
func (r *GormTaskRepository) Complete(id string, now time.Time) error {
	return r.db.Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusCompleted,
			"updated_at": now,
		}).Error
}

// ListClaimable returns tasks with status open and no live lease, ordered by
// creation time so downstream scoring has a deterministic tie-break order.
func (r *GormTaskRepository) ListClaimable(now time.Time) ([]models.Task, error) {
	var tasks []models.Task

	err := r.db.
		Where("status = ? AND (claim_expires_at IS NULL OR claim_expires_at < ?)",
			models.TaskStatusOpen, now).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// CountStats aggregates task counts in one query.
func (r *GormTaskRepository) CountStats(now time.Time) (models.TaskStats, error) {
	var stats models.TaskStats

	err := r.db.Model(&models.Task{}).
		Select(`count(*) as total,
			coalesce(sum(case when status = 'open' then 1 else 0 end), 0) as open,
			coalesce(sum(case when status = 'in_progress' then 1 else 0 end), 0) as in_progress,
			coalesce(sum(case when status = 'completed' then 1 else 0 end), 0) as completed,
			coalesce(sum(case when due_date is not null and due_date < ? and status <> 'completed' then 1 else 0 end), 0) as overdue`,
			now).
		Scan(&stats).Error
	if err != nil {
		return models.TaskStats{}, err
	}

	return stats, nil
}
