package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacekeeper/internal/auth"
	"pacekeeper/internal/lock"
	"pacekeeper/internal/progression"
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
	"pacekeeper/internal/testutil"
)

type server struct {
	router *gin.Engine
	repos  *repository.Set
	clock  *testutil.Clock
	issuer *auth.Issuer
}

func newServer(t *testing.T, devTokens bool) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repository.NewSet(testutil.NewDB(t))
	resolver := recurrence.NewResolver(recurrence.DefaultOptions())
	engine := service.NewEngineService(repos, resolver, lock.NewLocal(), service.EngineConfig{
		Curve:          progression.DefaultCurve(),
		LifeReviveCost: 50,
		GoalReviveCost: 100,
	}, nil)
	clock := testutil.NewClock(time.Date(2024, 6, 4, 9, 30, 0, 0, time.UTC))
	issuer := auth.NewIssuer("test-secret", time.Hour)

	return &server{
		router: NewRouter(Deps{
			Engine:    engine,
			Tasks:     service.NewTaskService(repos, resolver),
			Users:     repos.Users,
			Issuer:    issuer,
			Now:       clock.Now,
			DevTokens: devTokens,
		}),
		repos:  repos,
		clock:  clock,
		issuer: issuer,
	}
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/dev-token", "", gin.H{"name": "ana", "timezone": "UTC"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestPing(t *testing.T) {
	s := newServer(t, false)
	w := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t, false)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/today", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/today", "garbage", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/auth/dev-token", "", gin.H{}).Code)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	s := newServer(t, false)
	token, err := s.issuer.Generate(999)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/progress", token, nil).Code)
}

func TestTaskLifecycle(t *testing.T) {
	s := newServer(t, true)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"title":    "stretch",
		"ep_value": 150,
		"schedule": gin.H{"frequency": "daily", "at_time": "08:00"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)

	w = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "walk", "schedule": gin.H{"frequency": "daily"}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/today", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var today service.Today
	decode(t, w, &today)
	require.Len(t, today.Tasks, 2)
	assert.Equal(t, "08:00", today.Tasks[0].Deadline)
	assert.Equal(t, "10:00", today.Tasks[1].Deadline)

	path := fmt.Sprintf("/api/v1/tasks/%d/complete", created.ID)
	w = s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res service.CompletionResult
	decode(t, w, &res)
	assert.Equal(t, []int{2}, res.LevelsGained)
	assert.Equal(t, int64(10), res.Diamonds)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, path, token, nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/shadow", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]interface{}
	decode(t, w, &snap)
	assert.EqualValues(t, 2, snap["total_tasks_today"])
	assert.EqualValues(t, 1, snap["shadow_done_now"])
	assert.EqualValues(t, 1, snap["user_done_now"])

	w = s.do(t, http.MethodGet, "/api/v1/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress map[string]interface{}
	decode(t, w, &progress)
	assert.EqualValues(t, 2, progress["level"])
	assert.EqualValues(t, 10, progress["diamonds"])

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", created.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", created.ID), token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/v1/tasks/abc", token, nil).Code)
}

func TestOverrideAndTimezone(t *testing.T) {
	s := newServer(t, true)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "dentist", "schedule": gin.H{"frequency": "daily"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, w, &created)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/overrides", created.ID), token, gin.H{"due_at": "2024-06-04T14:15:00Z"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/v1/me/timezone", token, gin.H{"timezone": "Europe/Berlin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/v1/me/timezone", token, gin.H{"timezone": "Moon/Base"}).Code)

	w = s.do(t, http.MethodGet, "/api/v1/today", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var today service.Today
	decode(t, w, &today)
	assert.Equal(t, "Europe/Berlin", today.Zone)
	require.Len(t, today.Tasks, 1)
	assert.Equal(t, "16:15", today.Tasks[0].Deadline)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/overrides", created.ID), token, gin.H{"due_at": "soon"}).Code)
}

func TestStreakEndpoints(t *testing.T) {
	s := newServer(t, true)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/api/v1/streaks/life", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/v1/streaks/life/revive", token, nil).Code)

	w = s.do(t, http.MethodPost, "/api/v1/goals", token, gin.H{"title": "fitness", "start_date": "2024-05-20"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var goal struct {
		ID uint `json:"id"`
	}
	decode(t, w, &goal)

	w = s.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{"title": "run", "goal_id": goal.ID, "week_quota": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/goals/%d/streak", goal.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st struct {
		CanRevive bool `json:"can_revive"`
		Weeks     []struct {
			Status string `json:"status"`
		} `json:"weeks"`
	}
	decode(t, w, &st)
	assert.True(t, st.CanRevive)
	require.Len(t, st.Weeks, 3)
	assert.Equal(t, "in_progress", st.Weeks[2].Status)

	assert.Equal(t, http.StatusPaymentRequired, s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/goals/%d/streak/revive", goal.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/goals/999/streak", token, nil).Code)
}
