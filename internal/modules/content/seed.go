package content

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/cache"
	"github.com/yungbote/questline-backend/internal/data/repos"
	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Courses      repos.CourseRepo
	Quizzes      repos.QuizRepo
	Achievements repos.AchievementRepo

	QuizCache cache.QuizCache
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("service", "ContentUsecases")
	return Usecases{deps: deps}
}

type SeedResult struct {
	Courses      int
	Quizzes      int
	Achievements int
}

// Seed upserts the whole catalog in one transaction. Quiz snapshots cached in
// redis are invalidated once the transaction commits.
func (u Usecases) Seed(ctx context.Context, cat *Catalog) (SeedResult, error) {
	var res SeedResult
	if cat == nil {
		return res, errors.New("missing catalog")
	}
	if err := cat.Validate(); err != nil {
		return res, err
	}
	if u.deps.DB == nil {
		return res, errors.New("content seed: missing db")
	}

	var quizIDs []uuid.UUID
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		courses := make([]*types.Course, 0, len(cat.Courses))
		for _, c := range cat.Courses {
			courses = append(courses, c.toDomain())
		}
		if len(courses) > 0 {
			if _, err := u.deps.Courses.Upsert(dbc, courses); err != nil {
				return err
			}
		}
		res.Courses = len(courses)

		for _, c := range cat.Courses {
			courseID := uuid.MustParse(c.ID)
			for _, qs := range c.Quizzes {
				q, err := u.deps.Quizzes.Save(dbc, qs.toDomain(courseID))
				if err != nil {
					return err
				}
				quizIDs = append(quizIDs, q.ID)
			}
		}
		res.Quizzes = len(quizIDs)

		achievements := make([]*types.Achievement, 0, len(cat.Achievements))
		for _, a := range cat.Achievements {
			achievements = append(achievements, a.toDomain())
		}
		if len(achievements) > 0 {
			if _, err := u.deps.Achievements.UpsertByKey(dbc, achievements); err != nil {
				return err
			}
		}
		res.Achievements = len(achievements)
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	if u.deps.QuizCache != nil {
		for _, id := range quizIDs {
			if err := u.deps.QuizCache.Invalidate(ctx, id); err != nil {
				u.deps.Log.Warn("quiz cache invalidate failed", "quiz_id", id, "error", err)
			}
		}
	}
	u.deps.Log.Info("catalog seeded",
		"courses", res.Courses,
		"quizzes", res.Quizzes,
		"achievements", res.Achievements,
	)
	return res, nil
}
