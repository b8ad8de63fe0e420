package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onboardhq/task-engine/internal/dto"
	apierrors "github.com/onboardhq/task-engine/internal/errors"
	"github.com/onboardhq/task-engine/internal/models"
	"github.com/onboardhq/task-engine/internal/services"
	"github.com/onboardhq/task-engine/internal/utils"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// ListTasks returns tasks matching the query filters
// Supports status, priority, assigned_to, search, employee_id and overdue
func (h *TaskHandler) ListTasks(c *gin.Context) {
	input := services.ListTasksInput{
		Search: c.Query("search"),
	}

	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		input.Priority = &priority
	}
	if v := c.Query("assigned_to"); v != "" {
		input.AssignedTo = &v
	}
	if v := c.Query("employee_id"); v != "" {
		input.TargetEmployeeID = &v
	}
	if v := c.Query("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid overdue flag")
			return
		}
		input.Overdue = overdue
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.service.ListTasks(input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.service.GetTask(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.service.CreateTask(services.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           models.TaskStatus(req.Status),
		Priority:         models.TaskPriority(req.Priority),
		DueDate:          req.DueDate,
		AssignedTo:       req.AssignedTo,
		CreatedBy:        req.CreatedBy,
		TargetEmployeeID: req.TargetEmployeeID,
		Tags:             req.Tags,
		Source:           models.TaskSource(req.Source),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask partially updates a task. The raw body is inspected so that an
// explicit null can be told apart from an absent field. The claim fields are
// not read from the payload at all.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput

	if title, ok := rawReq["title"].(string); ok {
		input.Title = &title
	}
	if description, ok := rawReq["description"].(string); ok {
		input.Description = &description
	}
	if status, ok := rawReq["status"].(string); ok {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority, ok := rawReq["priority"].(string); ok {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if raw, ok := rawReq["due_date"]; ok {
		if raw == nil {
			input.ClearDueDate = true
		} else if s, ok := raw.(string); ok {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				apierrors.BadRequest(c, "Invalid due_date format, expected RFC3339")
				return
			}
			input.DueDate = &parsed
		}
	}
	if raw, ok := rawReq["assigned_to"]; ok {
		if raw == nil {
			input.ClearAssignedTo = true
		} else if s, ok := raw.(string); ok {
			input.AssignedTo = &s
		}
	}
	if s, ok := rawReq["target_employee_id"].(string); ok {
		input.TargetEmployeeID = &s
	}
	if raw, ok := rawReq["tags"].([]any); ok {
		tags := make([]string, 0, len(raw))
		for _, t := range raw {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		input.Tags = &tags
	}

	task, err := h.service.UpdateTask(c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CompleteTask transitions a task to completed. Safe to retry.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	task, err := h.service.CompleteTask(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ClaimTask leases a task to an agent. A 409 means another claimant holds it;
// the caller should move on to its next candidate.
func (h *TaskHandler) ClaimTask(c *gin.Context) {
	var req dto.ClaimTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	leaseSeconds := 3600
	if req.LeaseSeconds != nil {
		leaseSeconds = *req.LeaseSeconds
	}

	task, err := h.service.ClaimTask(c.Param("id"), req.AgentID, leaseSeconds)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// RecommendTasks returns a ranked list of claimable tasks for an agent
func (h *TaskHandler) RecommendTasks(c *gin.Context) {
	agentCtx := services.AgentContext{
		UserID:     c.Query("user_id"),
		Role:       c.Query("role"),
		Department: c.Query("department"),
		Scope:      c.QueryArray("scope"),
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	tasks, err := h.service.RecommendTasks(agentCtx, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// GetTaskStats returns aggregate task counts
func (h *TaskHandler) GetTaskStats(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GenerateTasks creates tasks from free text via the AI service
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text      string `json:"text" binding:"required"`
		CreatedBy string `json:"created_by" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.service.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text:      req.Text,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// respondError maps service errors onto HTTP status codes. Claim conflicts
// are an expected outcome and are returned without logging.
func (h *TaskHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrClaimConflict):
		apierrors.Conflict(c, "Task is not claimable")
	case errors.Is(err, services.ErrInvalidLeaseDuration),
		errors.Is(err, services.ErrAgentIDRequired),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrCreatorRequired),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
