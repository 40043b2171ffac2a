package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pacekeeper/internal/auth"
	"pacekeeper/internal/model"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
)

// Handler serves the API routes.
type Handler struct {
	engine *service.EngineService
	tasks  *service.TaskService
	users  *repository.UserRepository
	issuer *auth.Issuer
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewHandler(d Deps) *Handler {
	h := &Handler{engine: d.Engine, tasks: d.Tasks, users: d.Users, issuer: d.Issuer, log: d.Log, now: d.Now}
	if h.log == nil {
		h.log = zap.NewNop().Sugar()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

type devTokenRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// DevToken creates a user and issues a token for it.
func (h *Handler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "dev"
	}
	user := model.User{Name: name}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		h.fail(c, err)
		return
	}
	if req.Timezone != "" {
		if err := h.tasks.SetTimezone(c.Request.Context(), user.ID, req.Timezone); err != nil {
			h.fail(c, err)
			return
		}
	}
	token, err := h.issuer.Generate(user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "token": token})
}

func (h *Handler) Today(c *gin.Context) {
	today, err := h.engine.DueToday(c.Request.Context(), c.GetUint(ctxUserID), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, today)
}

func (h *Handler) Shadow(c *gin.Context) {
	st, err := h.engine.Shadow(c.Request.Context(), c.GetUint(ctxUserID), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) Progress(c *gin.Context) {
	p, err := h.engine.Progress(c.Request.Context(), c.GetUint(ctxUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) LifeStreak(c *gin.Context) {
	st, err := h.engine.LifeStreak(c.Request.Context(), c.GetUint(ctxUserID), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("days") != "true" {
		st.Days = nil
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) ReviveLife(c *gin.Context) {
	st, err := h.engine.ReviveLifeStreak(c.Request.Context(), c.GetUint(ctxUserID), h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	st.Days = nil
	c.JSON(http.StatusOK, st)
}

func (h *Handler) GoalStreak(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	st, err := h.engine.GoalStreak(c.Request.Context(), c.GetUint(ctxUserID), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) ReviveGoal(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	st, err := h.engine.ReviveGoalWeek(c.Request.Context(), c.GetUint(ctxUserID), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) CreateGoal(c *gin.Context) {
	var in service.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	goal, err := h.tasks.CreateGoal(c.Request.Context(), c.GetUint(ctxUserID), in, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": goal.ID, "title": goal.Title, "start_date": goal.StartDate})
}

func (h *Handler) CreateTask(c *gin.Context) {
	var in service.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), c.GetUint(ctxUserID), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": task.ID, "title": task.Title, "time_anchor": task.TimeAnchor, "ep_value": task.EPValue})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if err := h.tasks.DeactivateTask(c.Request.Context(), c.GetUint(ctxUserID), id, h.now()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CompleteTask(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	res, err := h.engine.Complete(c.Request.Context(), c.GetUint(ctxUserID), id, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type overrideRequest struct {
	DueAt time.Time `json:"due_at" binding:"required"`
}

func (h *Handler) AddOverride(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_at must be an RFC 3339 timestamp"})
		return
	}
	o, err := h.tasks.AddOverride(c.Request.Context(), c.GetUint(ctxUserID), id, req.DueAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": o.ID, "task_id": o.TaskID, "due_at": o.DueAt})
}

type timezoneRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

func (h *Handler) SetTimezone(c *gin.Context) {
	var req timezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timezone is required"})
		return
	}
	if err := h.tasks.SetTimezone(c.Request.Context(), c.GetUint(ctxUserID), req.Timezone); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timezone": req.Timezone})
}

func (h *Handler) idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid id %q", c.Param("id"))})
		return 0, false
	}
	return uint(id), true
}
