package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/onboardhq/task-engine/internal/constants"
	"github.com/onboardhq/task-engine/internal/models"
	"github.com/onboardhq/task-engine/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrCreatorRequired      = errors.New("created_by is required")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrAgentIDRequired      = errors.New("agent id is required")
	ErrInvalidLeaseDuration = errors.New("invalid lease duration")

	// ErrClaimConflict is the expected negative outcome of a claim race:
	// another agent holds a live lease or the task is no longer open. Callers
	// should move on to their next candidate, not treat this as a failure.
	ErrClaimConflict = errors.New("task is not claimable")

	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	aiService *AIService
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		aiService: aiService,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	AssignedTo       *string
	TargetEmployeeID *string
	Search           string
	Overdue          bool
	Page             int
	PageSize         int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           models.TaskStatus
	Priority         models.TaskPriority
	DueDate          *time.Time
	AssignedTo       *string
	CreatedBy        string
	TargetEmployeeID *string
	Tags             []string
	Source           models.TaskSource
}

// UpdateTaskInput represents input for a partial task update. The claim
// fields have no counterpart here; they belong to ClaimTask alone.
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
	AssignedTo       *string
	ClearAssignedTo  bool
	TargetEmployeeID *string
	Tags             *[]string
}

// AgentContext describes the identity asking for recommendations. All fields
// are optional; an empty context still yields a generically ranked list.
type AgentContext struct {
	UserID     string
	Role       string
	Department string
	Scope      []string
}

// ListTasks returns tasks matching the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !models.ValidTaskStatus(*input.Status) {
		return nil, 0, ErrInvalidStatus
	}
	if input.Priority != nil && !models.ValidTaskPriority(*input.Priority) {
		return nil, 0, ErrInvalidPriority
	}

	filter := repository.TaskFilter{
		Status:           input.Status,
		Priority:         input.Priority,
		AssignedTo:       input.AssignedTo,
		TargetEmployeeID: input.TargetEmployeeID,
		Search:           input.Search,
		Overdue:          input.Overdue,
		Now:              time.Now(),
		Page:             input.Page,
		PageSize:         input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignee", "TargetEmployee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task with validation and defaults
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.CreatedBy == "" {
		return nil, ErrCreatorRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusOpen
	}
	if !models.ValidTaskStatus(input.Status) {
		return nil, ErrInvalidStatus
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}

	if input.Source == "" {
		input.Source = models.TaskSourceManual
	}

	task := &models.Task{
		Title:            input.Title,
		Description:      input.Description,
		Status:           input.Status,
		Priority:         input.Priority,
		DueDate:          input.DueDate,
		AssignedTo:       input.AssignedTo,
		CreatedBy:        input.CreatedBy,
		TargetEmployeeID: input.TargetEmployeeID,
		Tags:             models.StringList(input.Tags),
		Source:           input.Source,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator")
}

// UpdateTask applies a partial update to a task. Claim fields are out of
// reach: only ClaimTask's conditional write may change them.
func (s *TaskService) UpdateTask(taskID string, input UpdateTaskInput) (*models.Task, error) {
	if _, err := s.findTask(taskID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Status != nil {
		if !models.ValidTaskStatus(*input.Status) {
			return nil, ErrInvalidStatus
		}
		fields["status"] = *input.Status
	}
	if input.Priority != nil {
		if !models.ValidTaskPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		fields["priority"] = *input.Priority
	}
	if input.ClearDueDate {
		fields["due_date"] = nil
	} else if input.DueDate != nil {
		fields["due_date"] = *input.DueDate
	}
	if input.ClearAssignedTo {
		fields["assigned_to"] = nil
	} else if input.AssignedTo != nil {
		fields["assigned_to"] = *input.AssignedTo
	}
	if input.TargetEmployeeID != nil {
		fields["target_employee_id"] = *input.TargetEmployeeID
	}
	if input.Tags != nil {
		fields["tags"] = models.StringList(*input.Tags)
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if err := s.taskRepo.UpdateFields(taskID, fields); err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	return s.taskRepo.FindByID(taskID, "Creator", "Assignee", "TargetEmployee")
}

// CompleteTask transitions a task to its terminal state. Idempotent: a second
// completion is a no-op transition to the same state, not an error.
func (s *TaskService) CompleteTask(taskID string) (*models.Task, error) {
	if _, err := s.findTask(taskID); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Complete(taskID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	return s.taskRepo.FindByID(taskID)
}

// ClaimTask attempts to lease a task to an agent for leaseSeconds. Exactly
// one of any set of concurrent callers wins; the rest get ErrClaimConflict.
func (s *TaskService) ClaimTask(taskID, agentID string, leaseSeconds int) (*models.Task, error) {
	if leaseSeconds < constants.MinLeaseSeconds || leaseSeconds > constants.MaxLeaseSeconds {
		return nil, ErrInvalidLeaseDuration
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrAgentIDRequired
	}

	if _, err := s.findTask(taskID); err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)

	claimed, err := s.taskRepo.Claim(taskID, agentID, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	if !claimed {
		return nil, ErrClaimConflict
	}

	return s.taskRepo.FindByID(taskID)
}

// RecommendTasks ranks currently claimable tasks for an agent context.
// Read-only and safe to call repeatedly; results can be stale by the time a
// claim is issued, which ClaimTask's own atomicity handles.
func (s *TaskService) RecommendTasks(agentCtx AgentContext, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = constants.DefaultRecommendLimit
	}
	if limit > constants.MaxRecommendLimit {
		limit = constants.MaxRecommendLimit
	}

	now := time.Now()

	candidates, err := s.taskRepo.ListClaimable(now)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimable tasks: %w", err)
	}

	type scoredTask struct {
		task  models.Task
		score float64
	}

	scored := make([]scoredTask, len(candidates))
	for i, task := range candidates {
		scored[i] = scoredTask{task: task, score: ScoreTask(&task, agentCtx, now)}
	}

	// Stable sort keeps the store's return order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	result := make([]models.Task, len(scored))
	for i, st := range scored {
		result[i] = st.task
	}

	return result, nil
}

// ScoreTask computes the deterministic ranking score for a task: priority
// base, plus due-date urgency, plus a fixed bonus when the task is assigned
// to the requesting identity.
func ScoreTask(task *models.Task, agentCtx AgentContext, now time.Time) float64 {
	var score float64

	switch task.Priority {
	case models.TaskPriorityCritical:
		score += constants.ScorePriorityCritical
	case models.TaskPriorityHigh:
		score += constants.ScorePriorityHigh
	case models.TaskPriorityMedium:
		score += constants.ScorePriorityMedium
	case models.TaskPriorityLow:
		score += constants.ScorePriorityLow
	}

	if task.DueDate != nil {
		hoursUntilDue := task.DueDate.Sub(now).Hours()
		if hoursUntilDue < 0 {
			score += constants.ScoreOverdueBonus
		} else if hoursUntilDue < constants.ScoreUrgencyWindow {
			score += constants.ScoreUrgencyWindow - hoursUntilDue
		}
	}

	if agentCtx.UserID != "" && task.AssignedTo != nil && *task.AssignedTo == agentCtx.UserID {
		score += constants.ScoreAssignmentAffinity
	}

	return score
}

// Stats returns aggregate task counts for monitoring dashboards.
func (s *TaskService) Stats() (models.TaskStats, error) {
	stats, err := s.taskRepo.CountStats(time.Now())
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("failed to count task stats: %w", err)
	}

	return stats, nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text      string
	CreatedBy string
}

// GenerateTasks extracts tasks from free text via the AI service and creates
// them with source "ai".
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]models.Task, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if input.CreatedBy == "" {
		return nil, ErrCreatorRequired
	}

	generated, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(generated) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	created := make([]models.Task, 0, len(generated))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, g := range generated {
		if strings.TrimSpace(g.Title) == "" {
			continue
		}
		if g.DueDate != nil && g.DueDate.Before(cutoff) {
			g.DueDate = nil
		}

		priority := models.TaskPriority(g.Priority)
		if !models.ValidTaskPriority(priority) {
			priority = models.TaskPriorityMedium
		}

		task, err := s.CreateTask(CreateTaskInput{
			Title:       g.Title,
			Description: g.Description,
			Priority:    priority,
			DueDate:     g.DueDate,
			CreatedBy:   input.CreatedBy,
			Tags:        g.Tags,
			Source:      models.TaskSourceAI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create generated task: %w", err)
		}
		created = append(created, *task)
	}

	if len(created) == 0 {
		return nil, ErrAINoValidTasks
	}

	return created, nil
}

// findTask loads a task or maps a missing row to ErrTaskNotFound.
func (s *TaskService) findTask(taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
