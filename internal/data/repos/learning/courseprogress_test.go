package learning

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/questline-backend/internal/data/repos/testutil"
	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

func TestCourseProgressRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseProgressRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, testutil.Email("courseprogress"))
	c := testutil.SeedCourse(t, ctx, tx, 100)

	first, err := repo.Upsert(dbc, &types.CourseProgress{UserID: u.ID, CourseID: c.ID, Progress: 40, CompletedLessons: 4})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}

	got, err := repo.GetByUserAndCourse(dbc, u.ID, c.ID)
	if err != nil || got == nil || got.Progress != 40 {
		t.Fatalf("GetByUserAndCourse: err=%v got=%+v", err, got)
	}

	done := time.Now().UTC()
	got.Progress = 100
	got.CompletedLessons = 10
	got.CompletedAt = &done
	if _, err := repo.Upsert(dbc, got); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	again, err := repo.GetByUserAndCourse(dbc, u.ID, c.ID)
	if err != nil || again == nil {
		t.Fatalf("reload: err=%v", err)
	}
	if again.ID != first.ID || again.Progress != 100 || !again.Completed() {
		t.Fatalf("update not applied: %+v", again)
	}
	if n, err := repo.CountCompleted(dbc, u.ID); err != nil || n != 1 {
		t.Fatalf("CountCompleted: err=%v n=%d", err, n)
	}
	list, err := repo.ListByUser(dbc, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(list))
	}
}
