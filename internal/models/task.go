package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusBlocked, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityCritical TaskPriority = "critical"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityLow      TaskPriority = "low"
)

// ValidTaskPriority reports whether p is one of the known task priorities.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityCritical, TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

type TaskSource string

const (
	TaskSourceManual TaskSource = "manual"
	TaskSourceAI     TaskSource = "ai"
)

type Task struct {
	ID               string       `gorm:"type:varchar(36);primarykey" json:"id"`
	Title            string       `gorm:"not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	Status           TaskStatus   `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Priority         TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate          *time.Time   `json:"due_date"`
	AssignedTo       *string      `gorm:"type:varchar(36)" json:"assigned_to"`
	CreatedBy        string       `gorm:"type:varchar(36);not null" json:"created_by"`
	TargetEmployeeID *string      `gorm:"type:varchar(36)" json:"target_employee_id"`
	Tags             StringList   `gorm:"type:text" json:"tags"`
	Source           TaskSource   `gorm:"type:varchar(10);not null;default:'manual'" json:"source"`
	ClaimedByAgentID *string      `json:"claimed_by_agent_id"`
	ClaimExpiresAt   *time.Time   `json:"claim_expires_at"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// Relations
	Creator        User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Assignee       *User     `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	TargetEmployee *Employee `gorm:"foreignKey:TargetEmployeeID" json:"target_employee,omitempty"`
}

// BeforeCreate assigns a UUID primary key when the caller did not set one.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Claimable reports whether the task can be claimed at the given instant:
// status is open and any previous lease has lapsed. Readers must use this
// rather than inspecting ClaimedByAgentID, which may be stale after expiry.
func (t *Task) Claimable(now time.Time) bool {
	if t.Status != TaskStatusOpen {
		return false
	}
	return t.ClaimExpiresAt == nil || t.ClaimExpiresAt.Before(now)
}

// Overdue reports whether the task's due date has passed without completion.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}
