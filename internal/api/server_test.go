package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/store/memstore"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var fixedNow = time.Date(2024, time.March, 12, 10, 30, 0, 0, time.UTC)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	mgr := lifecycle.New(memstore.New(), lifecycle.WithClock(func() time.Time { return fixedNow }))
	cfg := config.NewDefault("test")
	cfg.Users = []config.UserConfig{
		{ID: "u1", Name: "Alice", Token: "alice-token"},
		{ID: "u2", Name: "Bob", Token: "bob-token"},
	}
	return NewServer(mgr, identity.FromConfig(cfg), opts...)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","today":"2024-03-12"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestCreateTask(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/tasks",
		`{"title":"Payroll","client":"Acme","frequency":"Monthly","due_date_logic":"{\"dateOfMonth\":\"31\"}"}`,
		"Authorization", "Bearer alice-token")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decode[task.Task](t, w)
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, "2024-04-30", got.Due.String())
	assert.Equal(t, task.StatusNotStarted, got.Status)

	hist := decode[[]history.Entry](t, do(t, s, http.MethodGet, "/api/tasks/1/history", ""))
	require.Len(t, hist, 1)
	assert.Equal(t, history.Created, hist[0].Action)
	assert.Equal(t, "Alice", hist[0].UserName)
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/tasks", `{"frequency":"Daily"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, clierr.InvalidInput, decode[output.ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodPost, "/api/tasks", `{"title":"x","frequency":"Fortnightly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, clierr.InvalidFrequency, decode[output.ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodPost, "/api/tasks", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOneTimeDateFromParams(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/tasks", `{"title":"Filing","params":{"date":"2024-06-30"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[task.Task](t, w)
	assert.Equal(t, "2024-06-30", got.Due.String())
}

type statusResponse struct {
	Success   bool       `json:"success"`
	Task      task.Task  `json:"task"`
	Successor *task.Task `json:"successor"`
}

func TestStatusCompletionSpawns(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		do(t, s, http.MethodPost, "/api/tasks", `{"title":"Payroll","frequency":"Daily"}`).Code)

	w := do(t, s, http.MethodPut, "/api/tasks/1/status", `{"status":"Completed"}`,
		"Cookie", "token=bob-token")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[statusResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, task.StatusCompleted, resp.Task.Status)
	require.NotNil(t, resp.Successor)
	assert.Equal(t, 2, resp.Successor.ID)
	assert.Equal(t, "2024-03-14", resp.Successor.Due.String())

	hist := decode[[]history.Entry](t, do(t, s, http.MethodGet, "/api/tasks/1/history", ""))
	require.NotEmpty(t, hist)
	assert.Equal(t, "Bob", hist[0].UserName)

	hist = decode[[]history.Entry](t, do(t, s, http.MethodGet, "/api/tasks/2/history", ""))
	require.Len(t, hist, 1)
	assert.Equal(t, history.AutoGenerated, hist[0].Action)
	assert.Equal(t, history.SystemName, hist[0].Actor())
}

func TestStatusErrors(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/tasks", `{"title":"Payroll","frequency":"Daily"}`)

	w := do(t, s, http.MethodPut, "/api/tasks/1/status", `{"status":"Done"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, clierr.InvalidStatus, decode[output.ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodPut, "/api/tasks/99/status", `{"status":"Completed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/tasks/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, clierr.InvalidTaskID, decode[output.ErrorResponse](t, w).Code)
}

func TestAuditFlow(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/tasks", `{"title":"Payroll","frequency":"One Time"}`)

	w := do(t, s, http.MethodPut, "/api/tasks/1/audit", `{"status":"Audited","audit_status":"Approved"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	do(t, s, http.MethodPut, "/api/tasks/1/status", `{"status":"Completed"}`)
	w = do(t, s, http.MethodPut, "/api/tasks/1/audit",
		`{"status":"Audited","audit_status":"Approved","audit_remarks":"ok"}`,
		"Authorization", "Bearer alice-token")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[task.Task](t, do(t, s, http.MethodGet, "/api/tasks/1", ""))
	assert.Equal(t, task.StatusAudited, got.Status)
	assert.Equal(t, task.AuditApproved, got.AuditStatus)
	assert.Equal(t, "Alice", got.Auditor)
	assert.NotNil(t, got.CompletedAt)
}

func TestListFilters(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/tasks", `{"title":"Payroll","worker":"alice","frequency":"Daily"}`)
	do(t, s, http.MethodPost, "/api/tasks", `{"title":"VAT","worker":"bob","frequency":"Quarterly"}`)
	do(t, s, http.MethodPut, "/api/tasks/2/status", `{"status":"In Progress"}`)

	all := decode[[]task.Task](t, do(t, s, http.MethodGet, "/api/tasks", ""))
	assert.Len(t, all, 2)

	byWorker := decode[[]task.Task](t, do(t, s, http.MethodGet, "/api/tasks?worker=bob", ""))
	require.Len(t, byWorker, 1)
	assert.Equal(t, "VAT", byWorker[0].Title)

	byStatus := decode[[]task.Task](t, do(t, s, http.MethodGet, "/api/tasks?status=in-progress,not_started&sort=status", ""))
	require.Len(t, byStatus, 2)
	assert.Equal(t, 1, byStatus[0].ID)

	w := do(t, s, http.MethodGet, "/api/tasks?status=Done", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/tasks?sort=priority", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	empty := do(t, s, http.MethodGet, "/api/tasks?client=nobody", "")
	assert.JSONEq(t, `[]`, empty.Body.String())
}

func TestUnknownTokenRejected(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, clierr.Unauthorized, decode[output.ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodGet, "/api/tasks", "", "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(0.001, 2))
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/health", "").Code)

	w := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, clierr.RateLimited, decode[output.ErrorResponse](t, w).Code)

	// Another client has its own bucket; forwarding headers are not trusted.
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	r.RemoteAddr = "198.51.100.7:4242"
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/health", "", "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientLimiterDropsIdleClients(t *testing.T) {
	l := newClientLimiter(0.001, 1)
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("a", start))
	assert.False(t, l.allow("a", start.Add(time.Second)))
	assert.True(t, l.allow("b", start.Add(time.Second)))

	later := start.Add(idleAfter + time.Minute)
	assert.True(t, l.allow("a", later))
	assert.Len(t, l.clients, 1)
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/health", "", headerRequestID, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}
