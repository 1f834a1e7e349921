package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/questline-backend/internal/http/response"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type UserHandlerDeps struct {
	Log      *logger.Logger
	Progress ProgressService
}

// UserHandler serves the caller's own progression summary and the public
// leaderboard.
type UserHandler struct {
	log      *logger.Logger
	progress ProgressService
}

func NewUserHandlerWithDeps(deps UserHandlerDeps) *UserHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &UserHandler{log: log.With("handler", "UserHandler"), progress: deps.Progress}
}

type provisionRequest struct {
	Email       string `json:"email" binding:"required,email,max=320"`
	DisplayName string `json:"display_name" binding:"max=120"`
}

// POST /api/me
// Creates the caller's progression row on first sign-in; repeat calls return it.
func (h *UserHandler) Provision(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<12)
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apierr.Invalid("body", err))
		return
	}
	out, err := h.progress.ProvisionUser(c.Request.Context(), progress.ProvisionUserInput{
		UserID:      userID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if out.Created {
		response.RespondCreated(c, gin.H{"stats": out.Stats})
		return
	}
	response.RespondOK(c, gin.H{"stats": out.Stats})
}

// GET /api/me/stats
func (h *UserHandler) Stats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := h.progress.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// POST /api/me/reconcile
func (h *UserHandler) Reconcile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	out, err := h.progress.ReconcileUser(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reconcile": out})
}

// GET /api/me/xp
func (h *UserHandler) XPHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := h.progress.ListXPHistory(c.Request.Context(), userID, limit)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

// GET /api/me/courses
func (h *UserHandler) Courses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.progress.ListCourseProgress(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": rows})
}

// GET /api/leaderboard
func (h *UserHandler) Leaderboard(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.progress.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"leaderboard": rows})
}
