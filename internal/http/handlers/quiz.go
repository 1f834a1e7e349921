package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/http/response"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type QuizHandlerDeps struct {
	Log      *logger.Logger
	Progress ProgressService
}

type QuizHandler struct {
	log      *logger.Logger
	progress ProgressService
}

func NewQuizHandlerWithDeps(deps QuizHandlerDeps) *QuizHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &QuizHandler{log: log.With("handler", "QuizHandler"), progress: deps.Progress}
}

type submitAttemptRequest struct {
	// null entries are skipped questions
	Answers          []*int `json:"answers" binding:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds" binding:"gte=0"`
	IdempotencyKey   string `json:"idempotency_key" binding:"max=128"`
}

// POST /api/quizzes/:id/attempts
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, apierr.Invalid("quiz_id", err))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<16)
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, h.log, apierr.Invalid("body", err))
		return
	}

	out, err := h.progress.SubmitQuizAttempt(c.Request.Context(), progress.SubmitQuizAttemptInput{
		UserID:           userID,
		QuizID:           quizID,
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
		IdempotencyKey:   idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if out.Replayed {
		response.RespondOK(c, out)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/quizzes/:id/attempts
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, h.log, apierr.Invalid("quiz_id", err))
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	attempts, err := h.progress.ListAttempts(c.Request.Context(), userID, &quizID, limit)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"attempts": attempts})
}

// bindOptionalJSON treats an empty body as an empty request.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
