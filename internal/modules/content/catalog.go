package content

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	types "github.com/yungbote/questline-backend/internal/domain"
)

const CatalogPathEnv = "CONTENT_CATALOG_YAML"

//go:embed default_catalog.yaml
var defaultCatalogFS embed.FS

// Catalog is the authored content the engine reads: courses with their
// quizzes, and the achievement catalog. Ids are fixed in the file so seeding
// the same catalog twice updates rows instead of duplicating them.
type Catalog struct {
	Version      int               `yaml:"version" validate:"gte=1"`
	Courses      []CourseSpec      `yaml:"courses" validate:"dive"`
	Achievements []AchievementSpec `yaml:"achievements" validate:"dive"`
}

type CourseSpec struct {
	ID           string     `yaml:"id" validate:"required,uuid"`
	Title        string     `yaml:"title" validate:"required"`
	Description  string     `yaml:"description"`
	LessonCount  int        `yaml:"lesson_count" validate:"gte=0"`
	CompletionXP int        `yaml:"completion_xp" validate:"gte=0"`
	Published    bool       `yaml:"published"`
	Quizzes      []QuizSpec `yaml:"quizzes" validate:"dive"`
}

type QuizSpec struct {
	ID          string         `yaml:"id" validate:"required,uuid"`
	Title       string         `yaml:"title" validate:"required"`
	XPReward    int            `yaml:"xp_reward" validate:"gte=0"`
	AllowRetake bool           `yaml:"allow_retake"`
	Published   bool           `yaml:"published"`
	Questions   []QuestionSpec `yaml:"questions" validate:"required,min=1,dive"`
}

// QuestionSpec points default to 1 when omitted.
type QuestionSpec struct {
	Prompt       string   `yaml:"prompt" validate:"required"`
	Options      []string `yaml:"options" validate:"required,min=2,dive,required"`
	CorrectIndex int      `yaml:"correct_index" validate:"gte=0"`
	Points       int      `yaml:"points" validate:"gte=0"`
	Explanation  string   `yaml:"explanation"`
}

type AchievementSpec struct {
	Key         string         `yaml:"key" validate:"required,max=64"`
	Title       string         `yaml:"title" validate:"required"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Rarity      string         `yaml:"rarity" validate:"required,oneof=common rare epic legendary"`
	XPReward    int            `yaml:"xp_reward" validate:"gte=0"`
	Active      *bool          `yaml:"active"`
	Criteria    types.Criteria `yaml:"criteria"`
}

var validate = validator.New()

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads path, or CONTENT_CATALOG_YAML, or the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(CatalogPathEnv))
	}
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = defaultCatalogFS.ReadFile("default_catalog.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Validate runs struct tags first, then the rules tags cannot express:
// unique ids and keys, correct index within options, well-formed criteria.
func (c *Catalog) Validate() error {
	if c == nil {
		return errors.New("missing catalog")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	seenIDs := map[string]bool{}
	for _, course := range c.Courses {
		if seenIDs[course.ID] {
			return fmt.Errorf("duplicate id %s", course.ID)
		}
		seenIDs[course.ID] = true
		for _, quiz := range course.Quizzes {
			if seenIDs[quiz.ID] {
				return fmt.Errorf("duplicate id %s", quiz.ID)
			}
			seenIDs[quiz.ID] = true
			for i, q := range quiz.Questions {
				if q.CorrectIndex >= len(q.Options) {
					return fmt.Errorf("quiz %s question %d: correct_index %d out of range", quiz.ID, i, q.CorrectIndex)
				}
			}
		}
	}
	seenKeys := map[string]bool{}
	for _, a := range c.Achievements {
		if seenKeys[a.Key] {
			return fmt.Errorf("duplicate achievement key %s", a.Key)
		}
		seenKeys[a.Key] = true
		if err := a.Criteria.Validate(); err != nil {
			return fmt.Errorf("achievement %s: %w", a.Key, err)
		}
	}
	return nil
}

func (s CourseSpec) toDomain() *types.Course {
	return &types.Course{
		ID:           uuid.MustParse(s.ID),
		Title:        s.Title,
		Description:  s.Description,
		LessonCount:  s.LessonCount,
		CompletionXP: s.CompletionXP,
		Published:    s.Published,
	}
}

func (s QuizSpec) toDomain(courseID uuid.UUID) *types.Quiz {
	q := &types.Quiz{
		ID:          uuid.MustParse(s.ID),
		CourseID:    &courseID,
		Title:       s.Title,
		XPReward:    s.XPReward,
		AllowRetake: s.AllowRetake,
		Published:   s.Published,
	}
	for i, qs := range s.Questions {
		points := qs.Points
		if points == 0 {
			points = 1
		}
		q.Questions = append(q.Questions, types.QuizQuestion{
			Index:        i,
			Prompt:       qs.Prompt,
			Options:      append([]string(nil), qs.Options...),
			CorrectIndex: qs.CorrectIndex,
			Points:       points,
			Explanation:  qs.Explanation,
		})
	}
	return q
}

func (s AchievementSpec) toDomain() *types.Achievement {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return &types.Achievement{
		Key:         s.Key,
		Title:       s.Title,
		Description: s.Description,
		Category:    s.Category,
		Rarity:      types.Rarity(s.Rarity),
		Criteria:    datatypes.NewJSONType(s.Criteria),
		XPReward:    s.XPReward,
		Active:      active,
	}
}
