package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// createRequest is the body of POST /api/tasks. due_date_logic is accepted
// as an alias of params, as an object or as serialized JSON text.
type createRequest struct {
	Title        string          `json:"title"`
	Worker       string          `json:"worker"`
	Client       string          `json:"client"`
	Frequency    string          `json:"frequency"`
	Params       json.RawMessage `json:"params"`
	DueDateLogic json.RawMessage `json:"due_date_logic"`
	Remarks      string          `json:"remarks"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type auditRequest struct {
	Status       string `json:"status"`
	AuditStatus  string `json:"audit_status"`
	AuditRemarks string `json:"audit_remarks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"today":  s.mgr.Today(),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	opts, err := s.listOptions(c)
	if err != nil {
		writeError(c, err)
		return
	}

	tasks, err := s.mgr.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	tasks = board.List(tasks, s.columns, opts)
	if tasks == nil {
		tasks = []*task.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) listOptions(c *gin.Context) (board.ListOptions, error) {
	opts := board.ListOptions{
		Filter: board.FilterOptions{
			Worker: c.Query("worker"),
			Client: c.Query("client"),
			Search: c.Query("q"),
		},
		SortBy:  c.DefaultQuery("sort", "id"),
		Reverse: c.Query("reverse") == "true",
	}

	for _, raw := range c.QueryArray("status") {
		for _, name := range strings.Split(raw, ",") {
			st, err := task.ValidateAuditTarget(name)
			if err != nil {
				return opts, err
			}
			opts.Filter.Statuses = append(opts.Filter.Statuses, st)
		}
	}
	if f := c.Query("frequency"); f != "" {
		freq, err := task.ValidateFrequency(f)
		if err != nil {
			return opts, err
		}
		opts.Filter.Frequency = freq
	}
	if as := c.Query("audit_status"); as != "" {
		v, err := task.ValidateAuditStatus(as)
		if err != nil {
			return opts, err
		}
		opts.Filter.AuditStatus = v
	}
	if c.Query("overdue") == "true" {
		opts.Filter.Overdue = true
		opts.Filter.Today = s.mgr.Today()
	}
	if !slices.Contains(board.SortFields, opts.SortBy) {
		return opts, clierr.Newf(clierr.InvalidInput, "invalid sort field %q; valid: %s",
			opts.SortBy, strings.Join(board.SortFields, ", "))
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return opts, clierr.Newf(clierr.InvalidInput, "invalid limit %q", l)
		}
		opts.Limit = n
	}
	return opts, nil
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createRequest
	if !bindJSON(c, &req) {
		return
	}

	raw := req.Params
	if len(raw) == 0 {
		raw = req.DueDateLogic
	}
	var params recurrence.Params
	freq, ok := recurrence.ParseFrequency(req.Frequency)
	if strings.TrimSpace(req.Frequency) == "" {
		freq, ok = recurrence.OneTime, true
	}
	if ok {
		params = recurrence.Decode(freq, raw)
	}

	t, err := s.mgr.CreateTask(c.Request.Context(), lifecycle.NewTask{
		Title:     req.Title,
		Worker:    req.Worker,
		Client:    req.Client,
		Frequency: req.Frequency,
		Params:    params,
		Remarks:   req.Remarks,
	}, identity.FromContext(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, err := s.mgr.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	tr, err := s.mgr.TransitionStatus(c.Request.Context(), id, req.Status, identity.FromContext(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"task":      tr.Task,
		"successor": tr.Successor,
	})
}

func (s *Server) handleUpdateAudit(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req auditRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := s.mgr.TransitionAudit(c.Request.Context(), id, req.Status, req.AuditStatus, req.AuditRemarks,
		identity.FromContext(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    t,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	entries, err := s.mgr.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func taskID(c *gin.Context) (int, bool) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(c, task.ValidateTaskID(raw))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, clierr.Wrap(clierr.InvalidInput, err, "invalid request body"))
		return false
	}
	return true
}
