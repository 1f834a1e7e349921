package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/http/response"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type ProgressHandlerDeps struct {
	Log      *logger.Logger
	Progress ProgressService
}

type ProgressHandler struct {
	log      *logger.Logger
	progress ProgressService
}

func NewProgressHandlerWithDeps(deps ProgressHandlerDeps) *ProgressHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), progress: deps.Progress}
}

type reportProgressRequest struct {
	CourseID         string `json:"course_id"`
	CompletedLessons *int   `json:"completed_lessons" binding:"omitempty,gte=0"`
	Progress         *int   `json:"progress"`
	XPGained         *int   `json:"xp_gained" binding:"omitempty,gte=0"`
	HeartsLost       *int   `json:"hearts_lost" binding:"omitempty,gte=0"`
	StreakMaintained *bool  `json:"streak_maintained"`
	IdempotencyKey   string `json:"idempotency_key" binding:"max=128"`
}

// POST /api/courses/:id/progress
func (h *ProgressHandler) ReportCourseProgress(c *gin.Context) {
	h.report(c, c.Param("id"), true)
}

// POST /api/progress
func (h *ProgressHandler) ReportProgress(c *gin.Context) {
	h.report(c, "", false)
}

func (h *ProgressHandler) report(c *gin.Context, pathCourseID string, fromPath bool) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<14)
	var req reportProgressRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Fail(c, h.log, apierr.Invalid("body", err))
		return
	}
	raw := strings.TrimSpace(req.CourseID)
	if fromPath {
		raw = strings.TrimSpace(pathCourseID)
	}
	// an empty id reaches the use case as uuid.Nil and fails as course_id_missing
	courseID := uuid.Nil
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, h.log, apierr.Invalid("course_id", err))
			return
		}
		courseID = id
	}

	out, err := h.progress.ReportProgress(c.Request.Context(), progress.ReportProgressInput{
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: req.CompletedLessons,
		Progress:         req.Progress,
		XPGained:         req.XPGained,
		HeartsLost:       req.HeartsLost,
		StreakMaintained: req.StreakMaintained,
		IdempotencyKey:   idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}
