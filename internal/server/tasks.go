package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/models"
	"taskdesk/internal/parser"
	"taskdesk/internal/query"
	"taskdesk/internal/share"
	"taskdesk/internal/stats"
	"taskdesk/internal/tasks"
)

type taskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	TaskType    *string         `json:"taskType"`
	Priority    *string         `json:"priority"`
	Category    *string         `json:"category"`
	Tags        *[]string       `json:"tags"`
	DueDate     json.RawMessage `json:"dueDate"`
}

type quickTaskRequest struct {
	Text string `json:"text"`
}

type progressRequest struct {
	Text string `json:"text"`
}

// handleListTasks returns tasks filtered by view, search, priority and due order.
// A valid share token switches the source to the shared snapshot.
func (s *Server) handleListTasks(c *gin.Context) {
	opts, err := queryOptions(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	source, shared := s.sourceTasks(c)
	switch view := c.DefaultQuery("view", "all"); view {
	case "all":
	case "active":
		source = keep(source, models.Task.Active)
	case "completed":
		source = keep(source, func(t models.Task) bool { return !t.Active() })
	default:
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid view %q", view))
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"tasks":     query.Apply(source, opts),
		"shareMode": shared,
	})
}

// handleCreateTask inserts a new task from the task form.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	due, _, err := parseDue(req.DueDate)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	in := tasks.NewTask{
		Title:       getString(req.Title),
		Description: getString(req.Description),
		TaskType:    models.TaskType(getString(req.TaskType)),
		Priority:    models.Priority(getString(req.Priority)),
		Category:    getString(req.Category),
		DueDate:     due,
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
	}

	task, err := s.store.Add(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleQuickTask creates a task from a free-text phrase.
func (s *Server) handleQuickTask(c *gin.Context) {
	var req quickTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	parsed := parser.Parse(req.Text, s.now())
	task, err := s.store.Add(c.Request.Context(), tasks.NewTask{
		Title:    parsed.Title,
		Priority: parsed.Priority,
		DueDate:  parsed.DueDate,
	})
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask merges the given fields into an existing task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id := c.Param("id")

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	due, clearDue, err := parseDue(req.DueDate)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	patch := tasks.Patch{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Tags:         req.Tags,
		DueDate:      due,
		ClearDueDate: clearDue,
	}
	if req.Status != nil {
		st := models.Status(*req.Status)
		patch.Status = &st
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.TaskType != nil {
		tt := models.TaskType(*req.TaskType)
		patch.TaskType = &tt
	}

	if err := s.store.Update(c.Request.Context(), id, patch); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	s.respondTask(c, id)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleCompleteTask marks a task completed.
func (s *Server) handleCompleteTask(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Complete(c.Request.Context(), id); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	s.respondTask(c, id)
}

// handleAddProgress appends a progress note.
func (s *Server) handleAddProgress(c *gin.Context) {
	id := c.Param("id")

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.store.AddProgress(c.Request.Context(), id, req.Text); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	s.respondTask(c, id)
}

// handleStats returns dashboard figures for the stored or shared tasks.
func (s *Server) handleStats(c *gin.Context) {
	source, shared := s.sourceTasks(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"stats":     stats.Summarize(source, s.now()),
		"shareMode": shared,
	})
}

// respondTask writes the task after a mutation. Mutations on unknown ids are
// no-ops, so the task may legitimately be absent.
func (s *Server) respondTask(c *gin.Context, id string) {
	task, ok := s.store.Get(id)
	if !ok {
		respondSuccess(c, http.StatusOK, gin.H{"task": nil})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) sourceTasks(c *gin.Context) ([]models.Task, bool) {
	if token := c.Query(share.QueryParam); token != "" {
		shared, err := share.Decode(token, s.now())
		if err == nil {
			return shared, true
		}
		s.logger.Debug("ignoring share token", "error", err)
	}
	return s.store.All(), false
}

func queryOptions(c *gin.Context) (query.Options, error) {
	order, err := query.ParseOrder(c.Query("sort"))
	if err != nil {
		return query.Options{}, err
	}
	prio := models.Priority(strings.ToLower(strings.TrimSpace(c.Query("priority"))))
	if prio != "" && !prio.Valid() {
		return query.Options{}, fmt.Errorf("invalid priority %q", prio)
	}
	return query.Options{
		Search:   c.Query("q"),
		Priority: prio,
		DueOrder: order,
	}, nil
}

// parseDue distinguishes an absent field, an explicit null or empty string
// (clear), and a date value.
func parseDue(raw json.RawMessage) (*models.LocalTime, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("dueDate must be a string")
	}
	due, err := models.ParseLocalTime(s)
	if err != nil {
		return nil, false, err
	}
	return due, due == nil, nil
}

func keep(list []models.Task, pred func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
