package dto

import (
	"time"

	"github.com/onboardhq/task-engine/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// EmployeeDTO represents the employee a task is scoped to
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Status           models.TaskStatus   `json:"status"`
	Priority         models.TaskPriority `json:"priority"`
	DueDate          *time.Time          `json:"due_date"`
	AssignedTo       *string             `json:"assigned_to"`
	CreatedBy        string              `json:"created_by"`
	TargetEmployeeID *string             `json:"target_employee_id"`
	Tags             []string            `json:"tags"`
	Source           models.TaskSource   `json:"source"`
	ClaimedByAgentID *string             `json:"claimed_by_agent_id"`
	ClaimExpiresAt   *time.Time          `json:"claim_expires_at"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Creator          *UserDTO            `json:"creator,omitempty"`
	Assignee         *UserDTO            `json:"assignee,omitempty"`
	TargetEmployee   *EmployeeDTO        `json:"target_employee,omitempty"`
}

// CreateTaskRequest is the body for POST /api/tasks. ID, timestamps and the
// claim fields are system-assigned and not accepted here.
type CreateTaskRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	DueDate          *time.Time `json:"due_date"`
	AssignedTo       *string    `json:"assigned_to"`
	CreatedBy        string     `json:"created_by" binding:"required"`
	TargetEmployeeID *string    `json:"target_employee_id"`
	Tags             []string   `json:"tags"`
	Source           string     `json:"source"`
}

// ClaimTaskRequest is the body for POST /api/tasks/:id/claim.
type ClaimTaskRequest struct {
	AgentID      string `json:"agent_id" binding:"required"`
	LeaseSeconds *int   `json:"lease_seconds"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}

// ToEmployeeDTO converts an Employee model to EmployeeDTO
func ToEmployeeDTO(e models.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Department: e.Department,
		Position:   e.Position,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Status:           task.Status,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		AssignedTo:       task.AssignedTo,
		CreatedBy:        task.CreatedBy,
		TargetEmployeeID: task.TargetEmployeeID,
		Tags:             task.Tags,
		Source:           task.Source,
		ClaimedByAgentID: task.ClaimedByAgentID,
		ClaimExpiresAt:   task.ClaimExpiresAt,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}

	if dto.Tags == nil {
		dto.Tags = []string{}
	}

	// Include relations only when preloaded
	if task.Creator.ID != "" {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}
	if task.Assignee != nil && task.Assignee.ID != "" {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}
	if task.TargetEmployee != nil && task.TargetEmployee.ID != "" {
		employee := ToEmployeeDTO(*task.TargetEmployee)
		dto.TargetEmployee = &employee
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}
