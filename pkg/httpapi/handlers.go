// Package httpapi exposes the task store, alerts and sync over a JSON API.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/deadline"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/quadrant"
	"github.com/harrisonrobin/eisen/pkg/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Importance  string `json:"importance"`
}

type editTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type moveTaskRequest struct {
	Quadrant string `json:"quadrant"`
}

type alertItem struct {
	model.Task
	TimeText string `json:"timeText"`
}

type alertsResponse struct {
	Alerting bool        `json:"alerting"`
	Tasks    []alertItem `json:"tasks"`
}

type syncResponse struct {
	Enabled  bool       `json:"enabled"`
	State    string     `json:"state"`
	LastSync *time.Time `json:"lastSync"`
	Error    string     `json:"error,omitempty"`
}

type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func taskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		badRequest(c, "invalid task id")
		return 0, false
	}
	return id, true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.app.Clock.Now().Format(time.RFC3339)})
}

func (h *Handler) ListTasks(c *gin.Context) {
	tasks := h.app.Store.Active()
	if q := c.Query("quadrant"); q != "" {
		target, ok := quadrant.Parse(q)
		if !ok {
			badRequest(c, "unknown quadrant "+q)
			return
		}
		filtered := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Quadrant == target {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) ListCompleted(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Store.Completed())
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid task payload")
		return
	}
	var due *time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		t, err := model.ParseDue(req.DueDate)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		due = &t
	}
	task, err := h.app.Store.AddTask(req.Title, req.Description, due, quadrant.NormalizeImportance(req.Importance))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) EditTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req editTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid task payload")
		return
	}
	task, changed := h.app.Store.EditTask(id, req.Title, req.Description)
	if !changed {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	h.app.Store.DeleteTask(id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) CompleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	done, found := h.app.Store.CompleteTask(id)
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, done)
}

func (h *Handler) MoveTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid move payload")
		return
	}
	target, known := quadrant.Parse(req.Quadrant)
	if !known {
		target = model.Quadrant(req.Quadrant)
	}
	task, moved, err := h.app.Store.MoveTask(id, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !moved {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) ClearTasks(c *gin.Context) {
	if c.Query("confirm") != "true" {
		badRequest(c, "clearing all tasks requires confirm=true")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": h.app.Store.ClearAll()})
}

func (h *Handler) Recalculate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"changed": h.app.Store.RecalculateUrgency()})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Store.Stats())
}

func (h *Handler) Insights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.app.Store.Insights().Render()})
}

func (h *Handler) Notifications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		badRequest(c, "invalid limit")
		return
	}
	c.JSON(http.StatusOK, h.app.Recorder.Recent(limit))
}

func (h *Handler) Alerts(c *gin.Context) {
	now := h.app.Clock.Now()
	resp := alertsResponse{Alerting: h.app.Monitor.Alerting(), Tasks: []alertItem{}}
	for _, t := range h.app.Monitor.Shown() {
		resp.Tasks = append(resp.Tasks, alertItem{Task: t, TimeText: deadline.Describe(t, now)})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DismissAlert(c *gin.Context) {
	h.app.Monitor.Dismiss()
	c.Status(http.StatusNoContent)
}

func (h *Handler) SnoozeAlert(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"snoozed": h.app.Monitor.SnoozeAll()})
}

func (h *Handler) syncStatus() syncResponse {
	agent := h.app.Agent
	resp := syncResponse{Enabled: agent.Enabled(), State: string(agent.State())}
	if last := agent.LastSync(); !last.IsZero() {
		resp.LastSync = &last
	}
	if err := agent.LastError(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (h *Handler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.syncStatus())
}

func (h *Handler) SyncNow(c *gin.Context) {
	if err := h.app.Agent.SyncData(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.syncStatus())
}

func (h *Handler) Focus(c *gin.Context) {
	if err := h.app.Agent.Focus(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.syncStatus())
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, store.ErrValidation) {
		badRequest(c, err.Error())
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
