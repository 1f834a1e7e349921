package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/questline-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/questline-backend/internal/data/repos"
	repotest "github.com/yungbote/questline-backend/internal/data/repos/testutil"
	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

type harness struct {
	db    *gorm.DB
	agg   domainagg.ProgressAggregate
	hooks *aggtest.HooksRecorder
	users repos.UserRepo
	led   repos.XPLedgerRepo
}

func newHarness(t *testing.T, runner func(db *gorm.DB) aggregates.TxRunner) *harness {
	t.Helper()
	db := repotest.SQLiteDB(t)
	log := repotest.Logger(t)
	hooks := &aggtest.HooksRecorder{}
	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Hooks:    hooks,
		CASGuard: aggregates.NewCASGuard(db),
		Retry:    aggregates.RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond},
	}
	if runner != nil {
		base.Runner = runner(db)
	}
	h := &harness{
		db:    db,
		hooks: hooks,
		users: repos.NewUserRepo(db, log),
		led:   repos.NewXPLedgerRepo(db, log),
	}
	h.agg = aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		BaseDeps:     base,
		Config:       gamification.DefaultConfig(),
		Users:        h.users,
		Courses:      repos.NewCourseRepo(db, log),
		Attempts:     repos.NewQuizAttemptRepo(db, log),
		Progress:     repos.NewCourseProgressRepo(db, log),
		Achievements: repos.NewAchievementRepo(db, log),
		Unlocks:      repos.NewUnlockRepo(db, log),
		Ledger:       h.led,
	})
	return h
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *types.User {
	t.Helper()
	u, err := h.users.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || u == nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

// assertLedger checks that the cached XP equals the ledger sum.
func (h *harness) assertLedger(t *testing.T, id uuid.UUID) {
	t.Helper()
	u := h.reload(t, id)
	sum, err := h.led.SumByUser(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("ledger sum: %v", err)
	}
	if u.XP != sum {
		t.Fatalf("cached xp %d != ledger sum %d", u.XP, sum)
	}
}

func (h *harness) count(t *testing.T, model any, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func quizInput(userID, quizID uuid.UUID, xp int) domainagg.CompleteQuizInput {
	return domainagg.CompleteQuizInput{
		UserID:      userID,
		QuizID:      quizID,
		AllowRetake: true,
		Answers:     []int{0, 1},
		Correct:     []bool{true, true},
		Score:       2,
		MaxScore:    2,
		Percentage:  100,
		XPEarned:    xp,
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestCompleteQuizLevelsUpAcrossBoundary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUserWithXP(t, ctx, h.db, repotest.Email("lvl"), 950, 1)
	q := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0, 1})

	res, err := h.agg.CompleteQuiz(ctx, quizInput(u.ID, q.ID, 100))
	if err != nil {
		t.Fatalf("CompleteQuiz: %v", err)
	}
	if res.User.XP != 1050 || res.User.Level != 2 {
		t.Fatalf("user: xp=%d level=%d", res.User.XP, res.User.Level)
	}
	if !res.Level.LeveledUp || res.Level.PreviousLevel != 1 || res.Level.NewLevel != 2 {
		t.Fatalf("level change: %+v", res.Level)
	}
	if res.Attempt == nil || res.Attempt.XPEarned != 100 || !res.Attempt.Completed {
		t.Fatalf("attempt: %+v", res.Attempt)
	}
	stored := h.reload(t, u.ID)
	if stored.Version != 1 || stored.LastActiveAt == nil {
		t.Fatalf("stored user: version=%d last_active=%v", stored.Version, stored.LastActiveAt)
	}
	h.assertLedger(t, u.ID)
	if len(h.hooks.Operations) != 1 || h.hooks.Operations[0].Status != "success" {
		t.Fatalf("hooks: %+v", h.hooks.Operations)
	}
	if op := h.hooks.Operations[0].Op; !h.agg.Contract().Owns(op) || !h.agg.Contract().Replayable(op) {
		t.Fatalf("contract does not list %q as an idempotent op", op)
	}
}

func TestCompleteQuizUnlocksAchievementOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("first"))
	first := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0, 1})
	second := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0, 1})
	repotest.SeedAchievement(t, ctx, h.db, "first_quiz", 50, types.Criteria{Kind: types.CriteriaQuizzesCompleted, Threshold: 1})
	repotest.SeedAchievement(t, ctx, h.db, "sharp", 0, types.Criteria{Kind: types.CriteriaQuizScoreAtLeast, Threshold: 90})

	res, err := h.agg.CompleteQuiz(ctx, quizInput(u.ID, first.ID, 100))
	if err != nil {
		t.Fatalf("CompleteQuiz: %v", err)
	}
	if len(res.Unlocked) != 2 {
		t.Fatalf("unlocked: got=%d want=2", len(res.Unlocked))
	}
	if res.User.XP != 150 {
		t.Fatalf("xp: got=%d want=150", res.User.XP)
	}

	res, err = h.agg.CompleteQuiz(ctx, quizInput(u.ID, second.ID, 100))
	if err != nil {
		t.Fatalf("CompleteQuiz second: %v", err)
	}
	if len(res.Unlocked) != 0 {
		t.Fatalf("second quiz should not re-unlock, got=%d", len(res.Unlocked))
	}
	if n := h.count(t, &types.UserAchievementUnlock{}, u.ID); n != 2 {
		t.Fatalf("unlock rows: got=%d want=2", n)
	}
	h.assertLedger(t, u.ID)
}

func TestCompleteQuizReplaysIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("replay"))
	q := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0, 1})

	in := quizInput(u.ID, q.ID, 100)
	in.IdempotencyKey = "submit-1"
	first, err := h.agg.CompleteQuiz(ctx, in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	again, err := h.agg.CompleteQuiz(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !again.Replayed || again.Attempt.ID != first.Attempt.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Attempt.ID, again)
	}
	if again.User.XP != 100 || again.Level.LeveledUp {
		t.Fatalf("replay should not change xp: %+v", again.Level)
	}
	if n := h.count(t, &types.QuizAttempt{}, u.ID); n != 1 {
		t.Fatalf("attempt rows: got=%d want=1", n)
	}
	if len(h.hooks.Replays) != 1 || h.hooks.Replays[0] != "progress.complete_quiz" {
		t.Fatalf("replay hooks: %+v", h.hooks.Replays)
	}

	other := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0})
	in.QuizID = other.ID
	if _, err := h.agg.CompleteQuiz(ctx, in); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("reused key on another quiz: want conflict got %v", err)
	}
	h.assertLedger(t, u.ID)
}

func TestCompleteQuizWithholdsXPOnRetake(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("retake"))
	q := repotest.SeedQuiz(t, ctx, h.db, 100, false, []int{0, 1})

	in := quizInput(u.ID, q.ID, 100)
	in.AllowRetake = false
	if _, err := h.agg.CompleteQuiz(ctx, in); err != nil {
		t.Fatalf("first: %v", err)
	}
	res, err := h.agg.CompleteQuiz(ctx, in)
	if err != nil {
		t.Fatalf("retake: %v", err)
	}
	if !res.Retake || res.XPEarned != 0 || res.Attempt.XPEarned != 0 {
		t.Fatalf("retake result: %+v", res)
	}
	if res.User.XP != 100 {
		t.Fatalf("xp: got=%d want=100", res.User.XP)
	}
	if n := h.count(t, &types.QuizAttempt{}, u.ID); n != 2 {
		t.Fatalf("attempt rows: got=%d want=2", n)
	}
	h.assertLedger(t, u.ID)
}

func TestCompleteQuizRollsBackOnCommitFailure(t *testing.T) {
	ctx := context.Background()
	commitErr := errors.New("commit failed")
	var injected *aggtest.InjectedTxRunner
	h := newHarness(t, func(db *gorm.DB) aggregates.TxRunner {
		injected = &aggtest.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(db), FailCommit: commitErr}
		return injected
	})
	u := repotest.SeedUserWithXP(t, ctx, h.db, repotest.Email("rollback"), 950, 1)
	q := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0, 1})
	repotest.SeedAchievement(t, ctx, h.db, "first_quiz", 50, types.Criteria{Kind: types.CriteriaQuizzesCompleted, Threshold: 1})

	_, err := h.agg.CompleteQuiz(ctx, quizInput(u.ID, q.ID, 100))
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if injected.RollbackCalls != 1 || injected.CommitCalls != 0 {
		t.Fatalf("runner counters: commit=%d rollback=%d", injected.CommitCalls, injected.RollbackCalls)
	}
	if n := h.count(t, &types.QuizAttempt{}, u.ID); n != 0 {
		t.Fatalf("attempt rows after rollback: %d", n)
	}
	if n := h.count(t, &types.UserAchievementUnlock{}, u.ID); n != 0 {
		t.Fatalf("unlock rows after rollback: %d", n)
	}
	if n := h.count(t, &types.XPLedgerEntry{}, u.ID); n != 1 {
		t.Fatalf("ledger rows after rollback: got=%d want=1 (seed)", n)
	}
	stored := h.reload(t, u.ID)
	if stored.XP != 950 || stored.Level != 1 || stored.Version != 0 {
		t.Fatalf("user changed after rollback: xp=%d level=%d version=%d", stored.XP, stored.Level, stored.Version)
	}
}

func TestCompleteQuizRejectsMissingUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	q := repotest.SeedQuiz(t, ctx, h.db, 100, true, []int{0})

	_, err := h.agg.CompleteQuiz(ctx, quizInput(uuid.Nil, q.ID, 10))
	if !domainagg.IsCode(err, domainagg.CodeUnauthenticated) || !errors.Is(err, domainagg.ErrAuthenticationRequired) {
		t.Fatalf("nil user: got %v", err)
	}
	_, err = h.agg.CompleteQuiz(ctx, quizInput(uuid.New(), q.ID, 10))
	if !errors.Is(err, domainagg.ErrUserNotFound) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestUnlockAchievementConcurrentCallsGrantOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("race"))
	ach := repotest.SeedAchievement(t, ctx, h.db, "beta_tester", 100, types.Criteria{Kind: types.CriteriaManual})

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.agg.UnlockAchievement(ctx, domainagg.UnlockAchievementInput{UserID: u.ID, AchievementID: ach.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainagg.ErrAlreadyUnlocked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("successes=%d conflicts=%d", successes, conflicts)
	}
	if n := h.count(t, &types.UserAchievementUnlock{}, u.ID); n != 1 {
		t.Fatalf("unlock rows: got=%d want=1", n)
	}
	stored := h.reload(t, u.ID)
	if stored.XP != 100 {
		t.Fatalf("xp: got=%d want=100", stored.XP)
	}
	h.assertLedger(t, u.ID)
	if len(h.hooks.Conflicts) != workers-1 {
		t.Fatalf("conflict hooks: got=%d want=%d", len(h.hooks.Conflicts), workers-1)
	}
	if got := h.hooks.Statuses(domainagg.OpUnlockAchievement); len(got) != workers {
		t.Fatalf("unlock observations: got=%d want=%d", len(got), workers)
	}
}

func TestUnlockAchievementChainsLevelAchievements(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("chain"))
	beta := repotest.SeedAchievement(t, ctx, h.db, "beta_tester", 1000, types.Criteria{Kind: types.CriteriaManual})
	repotest.SeedAchievement(t, ctx, h.db, "level_2", 0, types.Criteria{Kind: types.CriteriaLevelAtLeast, Threshold: 2})

	res, err := h.agg.UnlockAchievement(ctx, domainagg.UnlockAchievementInput{UserID: u.ID, AchievementID: beta.ID})
	if err != nil {
		t.Fatalf("UnlockAchievement: %v", err)
	}
	if res.User.XP != 1000 || res.User.Level != 2 || !res.Level.LeveledUp {
		t.Fatalf("user: xp=%d level=%d", res.User.XP, res.User.Level)
	}
	if len(res.Chained) != 1 || res.Chained[0].Achievement.Key != "level_2" {
		t.Fatalf("chained: %+v", res.Chained)
	}
	h.assertLedger(t, u.ID)
}

func TestUnlockAchievementRejectsUnknownAndInactive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("unknown"))
	retired := repotest.SeedAchievement(t, ctx, h.db, "retired", 10, types.Criteria{Kind: types.CriteriaManual})
	if err := h.db.Model(&types.Achievement{}).Where("id = ?", retired.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	for _, id := range []uuid.UUID{uuid.New(), retired.ID, uuid.Nil} {
		_, err := h.agg.UnlockAchievement(ctx, domainagg.UnlockAchievementInput{UserID: u.ID, AchievementID: id})
		if !domainagg.IsCode(err, domainagg.CodeNotFound) || !errors.Is(err, domainagg.ErrAchievementNotFound) {
			t.Fatalf("achievement %s: got %v", id, err)
		}
	}
}

func TestRecordCourseProgressTracksStreak(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("streak"))
	c := repotest.SeedCourse(t, ctx, h.db, 0)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	report := func(at time.Time) domainagg.RecordCourseProgressResult {
		t.Helper()
		res, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{
			UserID:           u.ID,
			CourseID:         c.ID,
			Progress:         intPtr(10),
			StreakMaintained: boolPtr(true),
			OccurredAt:       at,
		})
		if err != nil {
			t.Fatalf("RecordCourseProgress: %v", err)
		}
		return res
	}

	if res := report(t0); res.User.StreakLength != 1 {
		t.Fatalf("first activity: streak=%d", res.User.StreakLength)
	}
	if res := report(t0.Add(20 * time.Hour)); res.User.StreakLength != 2 || res.StreakReset {
		t.Fatalf("within window: streak=%d reset=%v", res.User.StreakLength, res.StreakReset)
	}
	res := report(t0.Add(70 * time.Hour))
	if res.User.StreakLength != 1 || !res.StreakReset {
		t.Fatalf("after gap: streak=%d reset=%v", res.User.StreakLength, res.StreakReset)
	}
	if !res.User.LastActiveAt.Equal(t0.Add(70 * time.Hour)) {
		t.Fatalf("last active: %v", res.User.LastActiveAt)
	}
}

func TestRecordCourseProgressStreakSignals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	c := repotest.SeedCourse(t, ctx, h.db, 0)
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	cases := []struct {
		name       string
		length     int
		lastActive *time.Time
		in         domainagg.RecordCourseProgressInput
		want       int
		advanced   bool
	}{
		{"xp only without prior activity", 0, nil, domainagg.RecordCourseProgressInput{XPGained: intPtr(10)}, 1, true},
		{"xp only within window", 4, ago(20 * time.Hour), domainagg.RecordCourseProgressInput{XPGained: intPtr(10)}, 5, true},
		{"hearts only past window", 4, ago(50 * time.Hour), domainagg.RecordCourseProgressInput{HeartsLost: intPtr(1)}, 4, true},
		{"not maintained within window", 4, ago(20 * time.Hour), domainagg.RecordCourseProgressInput{StreakMaintained: boolPtr(false)}, 5, true},
		{"not maintained past window", 4, ago(50 * time.Hour), domainagg.RecordCourseProgressInput{StreakMaintained: boolPtr(false)}, 4, true},
		{"maintained past window", 4, ago(50 * time.Hour), domainagg.RecordCourseProgressInput{StreakMaintained: boolPtr(true)}, 1, true},
		{"progress only", 4, ago(20 * time.Hour), domainagg.RecordCourseProgressInput{Progress: intPtr(20)}, 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := repotest.SeedUser(t, ctx, h.db, repotest.Email("streak"))
			if err := h.db.Model(&types.User{}).Where("id = ?", u.ID).Updates(map[string]any{
				"streak_length":  tc.length,
				"last_active_at": tc.lastActive,
			}).Error; err != nil {
				t.Fatalf("seed streak: %v", err)
			}
			in := tc.in
			in.UserID = u.ID
			in.CourseID = c.ID
			in.OccurredAt = now
			res, err := h.agg.RecordCourseProgress(ctx, in)
			if err != nil {
				t.Fatalf("RecordCourseProgress: %v", err)
			}
			stored := h.reload(t, u.ID)
			if stored.StreakLength != tc.want {
				t.Fatalf("streak: got=%d want=%d", stored.StreakLength, tc.want)
			}
			moved := stored.LastActiveAt != nil && stored.LastActiveAt.Equal(now)
			if moved != tc.advanced {
				t.Fatalf("last active advanced: got=%v want=%v (%v)", moved, tc.advanced, stored.LastActiveAt)
			}
			if res.User.StreakLength != tc.want {
				t.Fatalf("result streak: got=%d want=%d", res.User.StreakLength, tc.want)
			}
		})
	}
}

func TestCompleteQuizRecordsStreakActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("quizstreak"))
	q := repotest.SeedQuiz(t, ctx, h.db, 10, true, []int{0, 1})
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	steps := []struct {
		at   time.Time
		want int
	}{
		{t0, 1},
		{t0.Add(20 * time.Hour), 2},
		// a quiz carries no maintenance signal, so a gap leaves the streak alone
		{t0.Add(70 * time.Hour), 2},
	}
	for i, st := range steps {
		in := quizInput(u.ID, q.ID, 10)
		in.CompletedAt = st.at
		res, err := h.agg.CompleteQuiz(ctx, in)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.User.StreakLength != st.want {
			t.Fatalf("step %d: streak got=%d want=%d", i, res.User.StreakLength, st.want)
		}
		if res.User.LastActiveAt == nil || !res.User.LastActiveAt.Equal(st.at) {
			t.Fatalf("step %d: last active %v want %v", i, res.User.LastActiveAt, st.at)
		}
	}
	if stored := h.reload(t, u.ID); stored.StreakLength != 2 {
		t.Fatalf("stored streak: got=%d want=2", stored.StreakLength)
	}
	h.assertLedger(t, u.ID)
}

func TestRecordCourseProgressTiersCompletionByMastery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("mastery"))
	c := repotest.SeedCourse(t, ctx, h.db, 200)
	qa := repotest.SeedCourseQuiz(t, ctx, h.db, c.ID, []int{0, 1})
	qb := repotest.SeedCourseQuiz(t, ctx, h.db, c.ID, []int{0, 1})

	for quizID, pct := range map[uuid.UUID]float64{qa.ID: 100, qb.ID: 70} {
		in := quizInput(u.ID, quizID, 0)
		in.Percentage = pct
		if _, err := h.agg.CompleteQuiz(ctx, in); err != nil {
			t.Fatalf("CompleteQuiz: %v", err)
		}
	}

	res, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, Progress: intPtr(100)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.CourseCompleted || res.Mastery != 85 {
		t.Fatalf("completion: completed=%v mastery=%d", res.CourseCompleted, res.Mastery)
	}
	// 85% mastery lands in the 80% tier: half of 200
	if res.XPAwarded != 100 {
		t.Fatalf("completion xp: got=%d want=100", res.XPAwarded)
	}
	h.assertLedger(t, u.ID)
}

func TestRecordCourseProgressClampsHearts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("hearts"))
	c := repotest.SeedCourse(t, ctx, h.db, 0)

	res, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, HeartsLost: intPtr(7)})
	if err != nil {
		t.Fatalf("lose hearts: %v", err)
	}
	if res.User.Hearts != 0 {
		t.Fatalf("hearts: got=%d want=0", res.User.Hearts)
	}
	res, err = h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, HeartsLost: intPtr(-10)})
	if err != nil {
		t.Fatalf("negative loss: %v", err)
	}
	if res.User.Hearts != 0 {
		t.Fatalf("negative loss must not refill: got=%d want=0", res.User.Hearts)
	}
}

func TestRecordCourseProgressGrantsCompletionOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("complete"))
	c := repotest.SeedCourse(t, ctx, h.db, 200)
	repotest.SeedAchievement(t, ctx, h.db, "graduate", 0, types.Criteria{Kind: types.CriteriaCoursesCompleted, Threshold: 1})

	res, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, Progress: intPtr(100)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.CourseCompleted || res.XPAwarded != 200 {
		t.Fatalf("completion: completed=%v xp=%d", res.CourseCompleted, res.XPAwarded)
	}
	if res.User.Level != 3 {
		t.Fatalf("course events level per 100 xp: got=%d want=3", res.User.Level)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].Achievement.Key != "graduate" {
		t.Fatalf("unlocked: %+v", res.Unlocked)
	}
	if res.Progress.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}

	res, err = h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, Progress: intPtr(100)})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if res.CourseCompleted || res.XPAwarded != 0 {
		t.Fatalf("repeat completion: completed=%v xp=%d", res.CourseCompleted, res.XPAwarded)
	}
	h.assertLedger(t, u.ID)
}

func TestRecordCourseProgressDerivesProgressFromLessons(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("lessons"))
	c := repotest.SeedCourse(t, ctx, h.db, 0)

	res, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: c.ID, CompletedLessons: intPtr(4)})
	if err != nil {
		t.Fatalf("RecordCourseProgress: %v", err)
	}
	if res.Progress.CompletedLessons != 4 || res.Progress.Progress != 40 {
		t.Fatalf("progress: %+v", res.Progress)
	}
}

func TestRecordCourseProgressReplaysIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("evt"))
	c := repotest.SeedCourse(t, ctx, h.db, 0)
	in := domainagg.RecordCourseProgressInput{
		UserID:         u.ID,
		CourseID:       c.ID,
		Progress:       intPtr(30),
		XPGained:       intPtr(30),
		HeartsLost:     intPtr(1),
		IdempotencyKey: "lesson-3",
	}

	if _, err := h.agg.RecordCourseProgress(ctx, in); err != nil {
		t.Fatalf("first: %v", err)
	}
	res, err := h.agg.RecordCourseProgress(ctx, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Replayed || res.User.XP != 30 || res.User.Hearts != 4 {
		t.Fatalf("replay: replayed=%v xp=%d hearts=%d", res.Replayed, res.User.XP, res.User.Hearts)
	}
	if len(h.hooks.Replays) != 1 || h.hooks.Replays[0] != "progress.record_course_progress" {
		t.Fatalf("replay hooks: %+v", h.hooks.Replays)
	}
	h.assertLedger(t, u.ID)
}

func TestRecordCourseProgressValidatesCourse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUser(t, ctx, h.db, repotest.Email("course"))

	_, err := h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID})
	if !domainagg.IsCode(err, domainagg.CodeValidation) || !errors.Is(err, domainagg.ErrCourseIDMissing) {
		t.Fatalf("missing course id: got %v", err)
	}
	_, err = h.agg.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{UserID: u.ID, CourseID: uuid.New()})
	if !errors.Is(err, domainagg.ErrCourseNotFound) {
		t.Fatalf("unknown course: got %v", err)
	}
}

func TestReconcileXPRepairsDrift(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	u := repotest.SeedUserWithXP(t, ctx, h.db, repotest.Email("drift"), 500, 1)

	res, err := h.agg.ReconcileXP(ctx, domainagg.ReconcileXPInput{UserID: u.ID})
	if err != nil {
		t.Fatalf("clean reconcile: %v", err)
	}
	if res.Repaired || res.Drift != 0 {
		t.Fatalf("clean user reported drift: %+v", res)
	}

	if err := h.db.Model(&types.User{}).Where("id = ?", u.ID).Update("xp", 700).Error; err != nil {
		t.Fatalf("inject drift: %v", err)
	}
	res, err = h.agg.ReconcileXP(ctx, domainagg.ReconcileXPInput{UserID: u.ID})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Repaired || res.Drift != 200 || res.LedgerXP != 500 || res.User.XP != 500 {
		t.Fatalf("reconcile result: %+v", res)
	}
	h.assertLedger(t, u.ID)
}
