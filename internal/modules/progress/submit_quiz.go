package progress

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

type SubmitQuizAttemptInput struct {
	UserID uuid.UUID
	QuizID uuid.UUID
	// Answers holds the selected option per question; nil marks a skipped question.
	Answers          []*int
	TimeSpentSeconds int
	IdempotencyKey   string
}

type SubmitQuizAttemptOutput struct {
	Attempt    *types.QuizAttempt `json:"attempt"`
	XPEarned   int                `json:"xp_earned"`
	Score      int                `json:"score"`
	MaxScore   int                `json:"max_score"`
	Percentage float64            `json:"percentage"`
	Results    []QuestionResult   `json:"results"`
	LeveledUp  bool               `json:"leveled_up"`
	NewLevel   int                `json:"new_level"`
	TotalXP    int64              `json:"total_xp"`
	Unlocked   []AchievementView  `json:"unlocked_achievements"`
	Retake     bool               `json:"retake"`
	Replayed   bool               `json:"replayed"`
}

func (u Usecases) SubmitQuizAttempt(ctx context.Context, in SubmitQuizAttemptInput) (out SubmitQuizAttemptOutput, err error) {
	ctx, span := startSpan(ctx, "SubmitQuizAttempt", in.UserID, attribute.String("quiz.id", in.QuizID.String()))
	defer func() { endSpan(span, err) }()

	const op = "progress.SubmitQuizAttempt"
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	quiz, err := u.loadQuiz(ctx, in.QuizID)
	if err != nil {
		return out, err
	}
	if quiz == nil || !quiz.Published {
		return out, domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrQuizNotFound)
	}

	answers := normalizeAnswers(in.Answers)
	snapshot := make([]gamification.QuestionSnapshot, len(quiz.Questions))
	for i, q := range quiz.Questions {
		snapshot[i] = gamification.QuestionSnapshot{CorrectIndex: q.CorrectIndex, Points: q.Points}
	}
	scored := gamification.Score(snapshot, answers)
	pct := gamification.Percentage(scored.Score, scored.MaxScore)
	xp := gamification.Reward(scored.Score, scored.MaxScore, quiz.XPReward, u.deps.Config.QuizRewardTiers)

	timeSpent := in.TimeSpentSeconds
	if timeSpent < 0 {
		timeSpent = 0
	}
	res, err := u.deps.Aggregate.CompleteQuiz(ctx, domainagg.CompleteQuizInput{
		UserID:           in.UserID,
		QuizID:           quiz.ID,
		AllowRetake:      quiz.AllowRetake,
		Answers:          answers,
		Correct:          scored.Correct,
		Score:            scored.Score,
		MaxScore:         scored.MaxScore,
		Percentage:       pct,
		XPEarned:         xp,
		TimeSpentSeconds: timeSpent,
		IdempotencyKey:   strings.TrimSpace(in.IdempotencyKey),
		CompletedAt:      u.now(),
	})
	if err != nil {
		return out, err
	}

	out = SubmitQuizAttemptOutput{
		Attempt:    res.Attempt,
		XPEarned:   res.XPEarned,
		Score:      scored.Score,
		MaxScore:   scored.MaxScore,
		Percentage: pct,
		LeveledUp:  res.Level.LeveledUp,
		NewLevel:   res.Level.NewLevel,
		TotalXP:    res.Level.NewXP,
		Unlocked:   unlockedViews(res.Unlocked),
		Retake:     res.Retake,
		Replayed:   res.Replayed,
	}
	if res.User != nil {
		out.TotalXP = res.User.XP
		out.NewLevel = res.User.Level
	}
	if res.Replayed && res.Attempt != nil {
		// the stored attempt is authoritative for a replay
		out.Score = res.Attempt.Score
		out.MaxScore = res.Attempt.MaxScore
		out.Percentage = res.Attempt.Percentage
		out.XPEarned = res.Attempt.XPEarned
		out.Results = questionResults(quiz.Questions, res.Attempt.Answers, res.Attempt.Correct)
	} else {
		out.Results = questionResults(quiz.Questions, answers, scored.Correct)
	}

	outcome := "scored"
	switch {
	case res.Replayed:
		outcome = "replayed"
	case res.Retake:
		outcome = "retake"
	}
	u.deps.Metrics.ObserveQuizSubmission(outcome, pct)
	if !res.Replayed {
		u.deps.Metrics.AddXPAwarded(string(types.XPSourceQuizAttempt), int64(res.XPEarned))
		u.afterCommit(ctx, res.User, types.TriggerQuiz, res.Level, res.Unlocked)
	}
	span.SetAttributes(
		attribute.String("quiz.outcome", outcome),
		attribute.Int("quiz.xp_earned", out.XPEarned),
		attribute.Float64("quiz.percentage", out.Percentage),
	)
	return out, nil
}

func (u Usecases) loadQuiz(ctx context.Context, quizID uuid.UUID) (*types.Quiz, error) {
	if quizID == uuid.Nil {
		return nil, nil
	}
	q, err := u.deps.QuizCache.Get(ctx, quizID, func(ctx context.Context, id uuid.UUID) (*types.Quiz, error) {
		return u.deps.Quizzes.GetWithQuestions(dbctx.Context{Ctx: ctx}, id)
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "progress.loadQuiz", err)
	}
	return q, nil
}

func normalizeAnswers(in []*int) []int {
	out := make([]int, len(in))
	for i, a := range in {
		if a == nil || *a < 0 {
			out[i] = types.SkippedAnswer
			continue
		}
		out[i] = *a
	}
	return out
}

func questionResults(questions []types.QuizQuestion, answers []int, correct []bool) []QuestionResult {
	out := make([]QuestionResult, len(questions))
	for i, q := range questions {
		r := QuestionResult{
			QuestionID:   q.ID,
			Index:        q.Index,
			Selected:     types.SkippedAnswer,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		}
		if i < len(answers) {
			r.Selected = answers[i]
		}
		if i < len(correct) {
			r.Correct = correct[i]
		}
		out[i] = r
	}
	return out
}
