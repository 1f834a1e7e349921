package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/http/response"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type AchievementHandlerDeps struct {
	Log      *logger.Logger
	Progress ProgressService
}

type AchievementHandler struct {
	log      *logger.Logger
	progress ProgressService
}

func NewAchievementHandlerWithDeps(deps AchievementHandlerDeps) *AchievementHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &AchievementHandler{log: log.With("handler", "AchievementHandler"), progress: deps.Progress}
}

// GET /api/achievements
func (h *AchievementHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	views, err := h.progress.ListAchievements(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"achievements": views})
}

// POST /api/achievements/:id/unlock
func (h *AchievementHandler) Unlock(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	achievementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, apierr.Invalid("achievement_id", err))
		return
	}
	out, err := h.progress.UnlockAchievement(c.Request.Context(), progress.UnlockAchievementInput{
		UserID:        userID,
		AchievementID: achievementID,
	})
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, out)
}
