package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type QuizRepo interface {
	// GetWithQuestions loads a quiz and its questions ordered by position.
	GetWithQuestions(dbc dbctx.Context, quizID uuid.UUID) (*types.Quiz, error)
	// Save upserts the quiz by id and replaces its question set.
	Save(dbc dbctx.Context, quiz *types.Quiz) (*types.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *quizRepo) GetWithQuestions(dbc dbctx.Context, quizID uuid.UUID) (*types.Quiz, error) {
	if quizID == uuid.Nil {
		return nil, nil
	}
	var q types.Quiz
	err := r.dbx(dbc).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ?", quizID).
		Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quizRepo) Save(dbc dbctx.Context, quiz *types.Quiz) (*types.Quiz, error) {
	if quiz == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if quiz.ID == uuid.Nil {
		quiz.ID = uuid.New()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = now
	}
	quiz.UpdatedAt = now
	questions := quiz.Questions
	quiz.Questions = nil

	t := r.dbx(dbc)
	err := t.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"course_id", "title", "xp_reward", "allow_retake", "published", "updated_at"}),
		}).Create(quiz).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&types.QuizQuestion{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			q := &questions[i]
			q.QuizID = quiz.ID
			if q.ID == uuid.Nil {
				q.ID = uuid.New()
			}
			if q.Options == nil {
				q.Options = []string{}
			}
			q.CreatedAt = now
			q.UpdatedAt = now
		}
		return tx.Create(&questions).Error
	})
	quiz.Questions = questions
	if err != nil {
		return nil, err
	}
	return quiz, nil
}
