package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onboardhq/task-engine/internal/models"
	"github.com/onboardhq/task-engine/internal/repository"
	"github.com/onboardhq/task-engine/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	router  *gin.Engine
	creator *models.User
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.Task{},
	)
	suite.Require().NoError(err)

	// Wire the stack without an AI service
	service := services.NewTaskService(repository.NewTaskRepository(suite.db), nil)
	handler := NewTaskHandler(service)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	tasks := suite.router.Group("/api/tasks")
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.POST("/generate", handler.GenerateTasks)
		tasks.GET("/recommendations", handler.RecommendTasks)
		tasks.GET("/stats", handler.GetTaskStats)
		tasks.GET("/:id", handler.GetTask)
		tasks.PATCH("/:id", handler.UpdateTask)
		tasks.POST("/:id/complete", handler.CompleteTask)
		tasks.POST("/:id/claim", handler.ClaimTask)
	}

	suite.creator = &models.User{Username: "hr-admin"}
	suite.Require().NoError(suite.db.Create(suite.creator).Error)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions

func (suite *TaskHandlerTestSuite) request(method, url string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) createTask(body gin.H) map[string]any {
	if _, ok := body["created_by"]; !ok {
		body["created_by"] = suite.creator.ID
	}
	w := suite.request("POST", "/api/tasks", body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func (suite *TaskHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// TestCreateTask tests creation response and defaults
func (suite *TaskHandlerTestSuite) TestCreateTask() {
	task := suite.createTask(gin.H{"title": "Order laptop"})

	assert.NotEmpty(suite.T(), task["id"])
	assert.Equal(suite.T(), "open", task["status"])
	assert.Equal(suite.T(), "medium", task["priority"])
	assert.Equal(suite.T(), "manual", task["source"])
	assert.Nil(suite.T(), task["claimed_by_agent_id"])
	assert.Nil(suite.T(), task["claim_expires_at"])
}

// TestCreateTask_Validation tests missing and invalid creation fields
func (suite *TaskHandlerTestSuite) TestCreateTask_Validation() {
	w := suite.request("POST", "/api/tasks", gin.H{"created_by": suite.creator.ID})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/api/tasks", gin.H{"title": "No creator"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/api/tasks", gin.H{
		"title": "Bad priority", "created_by": suite.creator.ID, "priority": "urgent",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestGetTask tests fetch and not-found
func (suite *TaskHandlerTestSuite) TestGetTask() {
	task := suite.createTask(gin.H{"title": "Order laptop"})

	w := suite.request("GET", "/api/tasks/"+task["id"].(string), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), task["id"], suite.decode(w)["id"])

	w = suite.request("GET", "/api/tasks/no-such-id", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", suite.decode(w)["code"])
}

// TestClaimTask tests the claim endpoint's distinct outcomes
func (suite *TaskHandlerTestSuite) TestClaimTask() {
	task := suite.createTask(gin.H{"title": "Contested task"})
	id := task["id"].(string)

	// Success
	w := suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"agent_id": "a1"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	claimed := suite.decode(w)
	assert.Equal(suite.T(), "a1", claimed["claimed_by_agent_id"])
	assert.NotNil(suite.T(), claimed["claim_expires_at"])

	// Contention is a 409, not a server error
	w = suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"agent_id": "a2"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFLICT", suite.decode(w)["code"])

	// Unknown id is a 404, distinguishable from contention
	w = suite.request("POST", "/api/tasks/no-such-id/claim", gin.H{"agent_id": "a1"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	// Bad input is a 400, distinguishable from both
	w = suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"agent_id": "a3", "lease_seconds": 86401})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"lease_seconds": 60})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestClaimTask_DefaultLease tests the 3600s default
func (suite *TaskHandlerTestSuite) TestClaimTask_DefaultLease() {
	task := suite.createTask(gin.H{"title": "Default lease"})
	id := task["id"].(string)

	before := time.Now()
	w := suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"agent_id": "a1"})
	suite.Require().Equal(http.StatusOK, w.Code)

	expiresAt, err := time.Parse(time.RFC3339Nano, suite.decode(w)["claim_expires_at"].(string))
	suite.Require().NoError(err)
	assert.WithinDuration(suite.T(), before.Add(time.Hour), expiresAt, 10*time.Second)
}

// TestUpdateTask_IgnoresClaimFields tests claim-field protection at the API edge
func (suite *TaskHandlerTestSuite) TestUpdateTask_IgnoresClaimFields() {
	task := suite.createTask(gin.H{"title": "Leased task"})
	id := task["id"].(string)

	w := suite.request("POST", "/api/tasks/"+id+"/claim", gin.H{"agent_id": "a1"})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request("PATCH", "/api/tasks/"+id, gin.H{
		"title":               "Renamed",
		"claimed_by_agent_id": "intruder",
		"claim_expires_at":    nil,
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	updated := suite.decode(w)
	assert.Equal(suite.T(), "Renamed", updated["title"])
	assert.Equal(suite.T(), "a1", updated["claimed_by_agent_id"])
	assert.NotNil(suite.T(), updated["claim_expires_at"])
}

// TestUpdateTask_PartialFields tests null-vs-absent handling
func (suite *TaskHandlerTestSuite) TestUpdateTask_PartialFields() {
	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	task := suite.createTask(gin.H{"title": "Draft checklist", "due_date": due})
	id := task["id"].(string)

	// Absent fields stay untouched
	w := suite.request("PATCH", "/api/tasks/"+id, gin.H{"description": "Cover IT and HR steps"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	updated := suite.decode(w)
	assert.Equal(suite.T(), "Draft checklist", updated["title"])
	assert.NotNil(suite.T(), updated["due_date"])

	// Explicit null clears
	w = suite.request("PATCH", "/api/tasks/"+id, gin.H{"due_date": nil})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Nil(suite.T(), suite.decode(w)["due_date"])

	w = suite.request("PATCH", "/api/tasks/"+id, gin.H{"due_date": "not-a-date"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCompleteTask tests terminal transition and idempotence over HTTP
func (suite *TaskHandlerTestSuite) TestCompleteTask() {
	task := suite.createTask(gin.H{"title": "Finish paperwork"})
	id := task["id"].(string)

	w := suite.request("POST", "/api/tasks/"+id+"/complete", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "completed", suite.decode(w)["status"])

	w = suite.request("POST", "/api/tasks/"+id+"/complete", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "completed", suite.decode(w)["status"])

	w = suite.request("POST", "/api/tasks/no-such-id/complete", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestRecommendations tests ranking and limit over HTTP
func (suite *TaskHandlerTestSuite) TestRecommendations() {
	suite.createTask(gin.H{"title": "Low", "priority": "low"})
	critical := suite.createTask(gin.H{"title": "Critical", "priority": "critical"})
	suite.createTask(gin.H{"title": "Completed", "status": "completed", "priority": "critical"})

	w := suite.request("GET", "/api/tasks/recommendations?limit=1", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	body := suite.decode(w)
	tasks := body["tasks"].([]any)
	suite.Require().Len(tasks, 1)
	assert.Equal(suite.T(), critical["id"], tasks[0].(map[string]any)["id"])

	w = suite.request("GET", "/api/tasks/recommendations?limit=abc", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestRecommendations_AffinityForUser tests the user_id query parameter
func (suite *TaskHandlerTestSuite) TestRecommendations_AffinityForUser() {
	assignee := &models.User{Username: "agent-user"}
	suite.Require().NoError(suite.db.Create(assignee).Error)

	suite.createTask(gin.H{"title": "Critical unassigned", "priority": "critical"})
	mine := suite.createTask(gin.H{"title": "Low but mine", "priority": "low", "assigned_to": assignee.ID})

	w := suite.request("GET", "/api/tasks/recommendations?user_id="+assignee.ID, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	tasks := suite.decode(w)["tasks"].([]any)
	suite.Require().Len(tasks, 2)
	assert.Equal(suite.T(), mine["id"], tasks[0].(map[string]any)["id"])
}

// TestStats tests the aggregate endpoint
func (suite *TaskHandlerTestSuite) TestStats() {
	suite.createTask(gin.H{"title": "Open"})
	done := suite.createTask(gin.H{"title": "To finish"})
	suite.request("POST", "/api/tasks/"+done["id"].(string)+"/complete", nil)

	w := suite.request("GET", "/api/tasks/stats", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	stats := suite.decode(w)
	assert.Equal(suite.T(), float64(2), stats["total"])
	assert.Equal(suite.T(), float64(1), stats["open"])
	assert.Equal(suite.T(), float64(1), stats["completed"])
	assert.Equal(suite.T(), float64(0), stats["overdue"])
}

// TestListTasks tests filters and pagination metadata
func (suite *TaskHandlerTestSuite) TestListTasks() {
	suite.createTask(gin.H{"title": "Ship welcome kit", "priority": "high"})
	suite.createTask(gin.H{"title": "Schedule intro meeting", "priority": "low"})

	w := suite.request("GET", "/api/tasks", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Len(suite.T(), body["tasks"].([]any), 2)
	assert.Contains(suite.T(), body, "pagination")

	w = suite.request("GET", "/api/tasks?priority=high", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["tasks"].([]any), 1)

	w = suite.request("GET", "/api/tasks?search=welcome", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["tasks"].([]any), 1)

	w = suite.request("GET", "/api/tasks?status=paused", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestGenerateTasks_Unconfigured tests the AI endpoint without an API key
func (suite *TaskHandlerTestSuite) TestGenerateTasks_Unconfigured() {
	w := suite.request("POST", "/api/tasks/generate", gin.H{
		"text":       "Order a laptop by Friday",
		"created_by": suite.creator.ID,
	})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

// TestEndToEndClaimLifecycle mirrors the full agent work loop over HTTP
func (suite *TaskHandlerTestSuite) TestEndToEndClaimLifecycle() {
	task := suite.createTask(gin.H{"title": "Provision accounts", "priority": "high"})
	id := task["id"].(string)

	w := suite.request("POST", fmt.Sprintf("/api/tasks/%s/claim", id), gin.H{"agent_id": "a1", "lease_seconds": 3600})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "a1", suite.decode(w)["claimed_by_agent_id"])

	w = suite.request("POST", fmt.Sprintf("/api/tasks/%s/claim", id), gin.H{"agent_id": "a2"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.request("POST", fmt.Sprintf("/api/tasks/%s/complete", id), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request("POST", fmt.Sprintf("/api/tasks/%s/claim", id), gin.H{"agent_id": "a2"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.request("GET", "/api/tasks/stats", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	stats := suite.decode(w)
	assert.Equal(suite.T(), float64(1), stats["completed"])
	assert.Equal(suite.T(), float64(0), stats["open"])
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
