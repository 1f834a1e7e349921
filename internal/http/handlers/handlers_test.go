package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/ctxutil"
)

type fakeProgress struct {
	err error

	submit    progress.SubmitQuizAttemptInput
	report    progress.ReportProgressInput
	unlock    progress.UnlockAchievementInput
	limit     int
	replay    bool
	reportHit bool
	provision progress.ProvisionUserInput
}

func (f *fakeProgress) SubmitQuizAttempt(_ context.Context, in progress.SubmitQuizAttemptInput) (progress.SubmitQuizAttemptOutput, error) {
	f.submit = in
	if f.err != nil {
		return progress.SubmitQuizAttemptOutput{}, f.err
	}
	return progress.SubmitQuizAttemptOutput{XPEarned: 50, Replayed: f.replay}, nil
}

func (f *fakeProgress) ListAttempts(_ context.Context, _ uuid.UUID, _ *uuid.UUID, limit int) ([]*types.QuizAttempt, error) {
	f.limit = limit
	return nil, f.err
}

func (f *fakeProgress) ReportProgress(_ context.Context, in progress.ReportProgressInput) (progress.ReportProgressOutput, error) {
	f.report = in
	f.reportHit = true
	if in.CourseID == uuid.Nil {
		return progress.ReportProgressOutput{}, domainagg.Sentinel(domainagg.CodeValidation, "test", domainagg.ErrCourseIDMissing)
	}
	return progress.ReportProgressOutput{}, f.err
}

func (f *fakeProgress) UnlockAchievement(_ context.Context, in progress.UnlockAchievementInput) (progress.UnlockAchievementOutput, error) {
	f.unlock = in
	return progress.UnlockAchievementOutput{}, f.err
}

func (f *fakeProgress) ListAchievements(context.Context, uuid.UUID) ([]progress.AchievementView, error) {
	return nil, f.err
}

func (f *fakeProgress) GetUserStats(_ context.Context, userID uuid.UUID) (progress.UserStats, error) {
	return progress.UserStats{UserID: userID}, f.err
}

func (f *fakeProgress) Leaderboard(_ context.Context, limit int) ([]progress.LeaderboardRow, error) {
	f.limit = limit
	return nil, f.err
}

func (f *fakeProgress) ReconcileUser(_ context.Context, userID uuid.UUID) (progress.ReconcileOutput, error) {
	return progress.ReconcileOutput{UserID: userID}, f.err
}

func (f *fakeProgress) ProvisionUser(_ context.Context, in progress.ProvisionUserInput) (progress.ProvisionUserOutput, error) {
	f.provision = in
	if f.err != nil {
		return progress.ProvisionUserOutput{}, f.err
	}
	return progress.ProvisionUserOutput{Stats: progress.UserStats{UserID: in.UserID}, Created: !f.replay}, nil
}

func (f *fakeProgress) ListXPHistory(_ context.Context, userID uuid.UUID, limit int) ([]*types.XPLedgerEntry, error) {
	f.limit = limit
	return []*types.XPLedgerEntry{{UserID: userID, Amount: 50}}, f.err
}

func (f *fakeProgress) ListCourseProgress(_ context.Context, userID uuid.UUID) ([]*types.CourseProgress, error) {
	return []*types.CourseProgress{{UserID: userID}}, f.err
}

func newTestRouter(svc ProgressService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	quiz := NewQuizHandlerWithDeps(QuizHandlerDeps{Progress: svc})
	prog := NewProgressHandlerWithDeps(ProgressHandlerDeps{Progress: svc})
	ach := NewAchievementHandlerWithDeps(AchievementHandlerDeps{Progress: svc})
	usr := NewUserHandlerWithDeps(UserHandlerDeps{Progress: svc})

	r.POST("/api/quizzes/:id/attempts", quiz.SubmitAttempt)
	r.GET("/api/quizzes/:id/attempts", quiz.ListAttempts)
	r.POST("/api/courses/:id/progress", prog.ReportCourseProgress)
	r.POST("/api/progress", prog.ReportProgress)
	r.GET("/api/achievements", ach.List)
	r.POST("/api/achievements/:id/unlock", ach.Unlock)
	r.POST("/api/me", usr.Provision)
	r.GET("/api/me/stats", usr.Stats)
	r.GET("/api/me/xp", usr.XPHistory)
	r.GET("/api/me/courses", usr.Courses)
	r.POST("/api/me/reconcile", usr.Reconcile)
	r.GET("/api/leaderboard", usr.Leaderboard)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return env.Error.Code
}

func TestSubmitAttempt(t *testing.T) {
	userID := uuid.New()
	quizID := uuid.New()
	path := "/api/quizzes/" + quizID.String() + "/attempts"

	t.Run("created with header key", func(t *testing.T) {
		svc := &fakeProgress{}
		w := do(newTestRouter(svc, userID), http.MethodPost, path,
			`{"answers":[1,null,2],"time_spent_seconds":42,"idempotency_key":"body-key"}`,
			map[string]string{"Idempotency-Key": "hdr-key"})
		if w.Code != http.StatusCreated {
			t.Fatalf("status: got=%d want=%d body=%s", w.Code, http.StatusCreated, w.Body.String())
		}
		if svc.submit.UserID != userID || svc.submit.QuizID != quizID {
			t.Fatalf("ids: %+v", svc.submit)
		}
		if svc.submit.IdempotencyKey != "hdr-key" {
			t.Fatalf("idempotency key: got=%q want=%q", svc.submit.IdempotencyKey, "hdr-key")
		}
		if len(svc.submit.Answers) != 3 || svc.submit.Answers[1] != nil || *svc.submit.Answers[2] != 2 {
			t.Fatalf("answers: %+v", svc.submit.Answers)
		}
		if svc.submit.TimeSpentSeconds != 42 {
			t.Fatalf("time spent: got=%d", svc.submit.TimeSpentSeconds)
		}
	})

	t.Run("replay is 200", func(t *testing.T) {
		svc := &fakeProgress{replay: true}
		w := do(newTestRouter(svc, userID), http.MethodPost, path, `{"answers":[0],"idempotency_key":"k"}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got=%d want=%d", w.Code, http.StatusOK)
		}
		if svc.submit.IdempotencyKey != "k" {
			t.Fatalf("idempotency key: got=%q", svc.submit.IdempotencyKey)
		}
	})

	cases := []struct {
		name     string
		userID   uuid.UUID
		path     string
		body     string
		err      error
		status   int
		wantCode string
	}{
		{"no caller", uuid.Nil, path, `{"answers":[0]}`, nil, http.StatusUnauthorized, "unauthorized"},
		{"bad quiz id", userID, "/api/quizzes/nope/attempts", `{"answers":[0]}`, nil, http.StatusBadRequest, "invalid_quiz_id"},
		{"missing answers", userID, path, `{"time_spent_seconds":3}`, nil, http.StatusBadRequest, "invalid_body"},
		{"negative time", userID, path, `{"answers":[0],"time_spent_seconds":-1}`, nil, http.StatusBadRequest, "invalid_body"},
		{"unknown quiz", userID, path, `{"answers":[0]}`,
			domainagg.Sentinel(domainagg.CodeNotFound, "test", domainagg.ErrQuizNotFound), http.StatusNotFound, "quiz_not_found"},
		{"retryable", userID, path, `{"answers":[0]}`,
			domainagg.Wrap(domainagg.CodeRetryable, "test", errors.New("serialization failure")), http.StatusServiceUnavailable, "retryable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeProgress{err: tc.err}
			w := do(newTestRouter(svc, tc.userID), http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", w.Code, tc.status, w.Body.String())
			}
			if got := errorCode(t, w); got != tc.wantCode {
				t.Fatalf("code: got=%q want=%q", got, tc.wantCode)
			}
		})
	}
}

func TestRetryableErrorHidesCause(t *testing.T) {
	svc := &fakeProgress{err: domainagg.Wrap(domainagg.CodeRetryable, "test", errors.New("pq: could not serialize"))}
	w := do(newTestRouter(svc, uuid.New()), http.MethodPost, "/api/quizzes/"+uuid.NewString()+"/attempts", `{"answers":[0]}`, nil)
	if strings.Contains(w.Body.String(), "serialize") {
		t.Fatalf("body leaks cause: %s", w.Body.String())
	}
}

func TestReportProgress(t *testing.T) {
	userID := uuid.New()
	courseID := uuid.New()

	t.Run("course from path", func(t *testing.T) {
		svc := &fakeProgress{}
		w := do(newTestRouter(svc, userID), http.MethodPost, "/api/courses/"+courseID.String()+"/progress",
			`{"progress":60,"xp_gained":80,"hearts_lost":1,"streak_maintained":true}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got=%d body=%s", w.Code, w.Body.String())
		}
		in := svc.report
		if in.CourseID != courseID || in.UserID != userID {
			t.Fatalf("ids: %+v", in)
		}
		if in.Progress == nil || *in.Progress != 60 || in.XPGained == nil || *in.XPGained != 80 {
			t.Fatalf("progress fields: %+v", in)
		}
		if in.HeartsLost == nil || *in.HeartsLost != 1 || in.StreakMaintained == nil || !*in.StreakMaintained {
			t.Fatalf("hearts/streak: %+v", in)
		}
		if in.CompletedLessons != nil {
			t.Fatalf("completed lessons should be absent: %v", *in.CompletedLessons)
		}
	})

	t.Run("course from body", func(t *testing.T) {
		svc := &fakeProgress{}
		w := do(newTestRouter(svc, userID), http.MethodPost, "/api/progress",
			`{"course_id":"`+courseID.String()+`","completed_lessons":3}`, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got=%d body=%s", w.Code, w.Body.String())
		}
		if svc.report.CourseID != courseID {
			t.Fatalf("course id: got=%s want=%s", svc.report.CourseID, courseID)
		}
	})

	cases := []struct {
		name     string
		path     string
		body     string
		status   int
		wantCode string
		reached  bool
	}{
		{"empty path id", "/api/courses//progress", `{"progress":10}`, http.StatusBadRequest, "course_id_missing", true},
		{"empty body", "/api/progress", "", http.StatusBadRequest, "course_id_missing", true},
		{"bad path id", "/api/courses/abc/progress", `{}`, http.StatusBadRequest, "invalid_course_id", false},
		{"bad body id", "/api/progress", `{"course_id":"abc"}`, http.StatusBadRequest, "invalid_course_id", false},
		{"negative xp", "/api/courses/" + courseID.String() + "/progress", `{"xp_gained":-5}`, http.StatusBadRequest, "invalid_body", false},
		{"negative hearts", "/api/courses/" + courseID.String() + "/progress", `{"hearts_lost":-1}`, http.StatusBadRequest, "invalid_body", false},
		{"malformed json", "/api/progress", `{"course_id":`, http.StatusBadRequest, "invalid_body", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeProgress{}
			w := do(newTestRouter(svc, userID), http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", w.Code, tc.status, w.Body.String())
			}
			if got := errorCode(t, w); got != tc.wantCode {
				t.Fatalf("code: got=%q want=%q", got, tc.wantCode)
			}
			if svc.reportHit != tc.reached {
				t.Fatalf("use case reached: got=%v want=%v", svc.reportHit, tc.reached)
			}
		})
	}
}

func TestUnlockAchievement(t *testing.T) {
	userID := uuid.New()
	achID := uuid.New()
	path := "/api/achievements/" + achID.String() + "/unlock"

	svc := &fakeProgress{}
	w := do(newTestRouter(svc, userID), http.MethodPost, path, "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got=%d body=%s", w.Code, w.Body.String())
	}
	if svc.unlock.AchievementID != achID || svc.unlock.UserID != userID {
		t.Fatalf("input: %+v", svc.unlock)
	}

	svc = &fakeProgress{err: domainagg.Sentinel(domainagg.CodeConflict, "test", domainagg.ErrAlreadyUnlocked)}
	w = do(newTestRouter(svc, userID), http.MethodPost, path, "", nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "already_unlocked" {
		t.Fatalf("already unlocked: status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(newTestRouter(&fakeProgress{}, userID), http.MethodPost, "/api/achievements/x/unlock", "", nil)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_achievement_id" {
		t.Fatalf("bad id: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLeaderboardLimit(t *testing.T) {
	userID := uuid.New()
	svc := &fakeProgress{}
	r := newTestRouter(svc, userID)

	w := do(r, http.MethodGet, "/api/leaderboard?limit=25", "", nil)
	if w.Code != http.StatusOK || svc.limit != 25 {
		t.Fatalf("limit: status=%d limit=%d", w.Code, svc.limit)
	}
	for _, bad := range []string{"-1", "ten"} {
		w = do(r, http.MethodGet, "/api/leaderboard?limit="+bad, "", nil)
		if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_limit" {
			t.Fatalf("limit=%s: status=%d body=%s", bad, w.Code, w.Body.String())
		}
	}
}

func TestStatsAndReconcile(t *testing.T) {
	userID := uuid.New()
	r := newTestRouter(&fakeProgress{}, userID)

	w := do(r, http.MethodGet, "/api/me/stats", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), userID.String()) {
		t.Fatalf("stats: status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/api/me/reconcile", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"reconcile"`) {
		t.Fatalf("reconcile: status=%d body=%s", w.Code, w.Body.String())
	}

	svc := &fakeProgress{err: domainagg.Sentinel(domainagg.CodeNotFound, "test", domainagg.ErrUserNotFound)}
	w = do(newTestRouter(svc, userID), http.MethodGet, "/api/me/stats", "", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "user_not_found" {
		t.Fatalf("unknown user: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestProvision(t *testing.T) {
	userID := uuid.New()

	svc := &fakeProgress{}
	w := do(newTestRouter(svc, userID), http.MethodPost, "/api/me", `{"email":"ada@example.com","display_name":"Ada"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got=%d body=%s", w.Code, w.Body.String())
	}
	if svc.provision.UserID != userID || svc.provision.Email != "ada@example.com" || svc.provision.DisplayName != "Ada" {
		t.Fatalf("input: %+v", svc.provision)
	}

	svc = &fakeProgress{replay: true}
	w = do(newTestRouter(svc, userID), http.MethodPost, "/api/me", `{"email":"ada@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("existing user: status=%d body=%s", w.Code, w.Body.String())
	}

	for _, body := range []string{"", `{}`, `{"email":"not-an-email"}`} {
		w = do(newTestRouter(&fakeProgress{}, userID), http.MethodPost, "/api/me", body, nil)
		if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_body" {
			t.Fatalf("body %q: status=%d body=%s", body, w.Code, w.Body.String())
		}
	}

	svc = &fakeProgress{err: domainagg.Sentinel(domainagg.CodeConflict, "test", domainagg.ErrEmailTaken)}
	w = do(newTestRouter(svc, userID), http.MethodPost, "/api/me", `{"email":"ada@example.com"}`, nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "email_taken" {
		t.Fatalf("email taken: status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(newTestRouter(&fakeProgress{}, uuid.Nil), http.MethodPost, "/api/me", `{"email":"ada@example.com"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestXPHistoryAndCourses(t *testing.T) {
	userID := uuid.New()
	svc := &fakeProgress{}
	r := newTestRouter(svc, userID)

	w := do(r, http.MethodGet, "/api/me/xp?limit=10", "", nil)
	if w.Code != http.StatusOK || svc.limit != 10 || !strings.Contains(w.Body.String(), `"entries"`) {
		t.Fatalf("xp: status=%d limit=%d body=%s", w.Code, svc.limit, w.Body.String())
	}
	w = do(r, http.MethodGet, "/api/me/xp?limit=x", "", nil)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_limit" {
		t.Fatalf("bad limit: status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/api/me/courses", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), userID.String()) {
		t.Fatalf("courses: status=%d body=%s", w.Code, w.Body.String())
	}
}
