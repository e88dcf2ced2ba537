package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/models"
)

// ProblemQuery defines filters and pagination for problem listings.
type ProblemQuery struct {
	Difficulty string
	Tags       []string
	Search     string
	Offset     int
	Limit      int
}

// ProblemRepository exposes persistence operations for problems, their test
// cases, templates, and tags.
type ProblemRepository interface {
	List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error)
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	GetWithTestCases(ctx context.Context, id uint) (models.Problem, error)
	Create(ctx context.Context, problem *models.Problem) error
	Update(ctx context.Context, problem *models.Problem) error
	Delete(ctx context.Context, id uint) error
	ReplaceTestCases(ctx context.Context, problemID uint, cases []models.TestCase, validated bool) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error)
}

// NewProblemRepository constructs a problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Problem{})

	if query.Difficulty != "" {
		db = db.Where("LOWER(difficulty) = ?", strings.ToLower(query.Difficulty))
	}

	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if len(query.Tags) > 0 {
		names := make([]string, 0, len(query.Tags))
		for _, tag := range query.Tags {
			trimmed := strings.ToLower(strings.TrimSpace(tag))
			if trimmed != "" {
				names = append(names, trimmed)
			}
		}
		if len(names) > 0 {
			db = db.Where(
				"id IN (SELECT problem_id FROM problem_tags JOIN tags ON tags.id = problem_tags.tag_id WHERE LOWER(tags.name) IN ?)",
				names,
			)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	db = db.Order("created_at DESC").Preload("Tags")

	var problems []models.Problem
	if err := db.Find(&problems).Error; err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("CodeTemplates").
		First(&problem, id).Error
	if err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) GetWithTestCases(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("CodeTemplates").
		Preload("TestCases", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_cases.id ASC")
		}).
		First(&problem, id).Error
	if err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) Update(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(problem).Error
}

func (r *problemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Select("TestCases", "CodeTemplates").Delete(&models.Problem{ID: id}).Error
}

// ReplaceTestCases swaps the full test-case set of a problem in one
// transaction and records whether the new set passed validation.
func (r *problemRepository) ReplaceTestCases(ctx context.Context, problemID uint, cases []models.TestCase, validated bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("problem_id = ?", problemID).Delete(&models.TestCase{}).Error; err != nil {
			return err
		}

		for i := range cases {
			cases[i].ID = 0
			cases[i].ProblemID = problemID
		}
		if len(cases) > 0 {
			if err := tx.Create(&cases).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Problem{}).
			Where("id = ?", problemID).
			Update("test_cases_validated", validated).Error
	})
}

func (r *problemRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *problemRepository) FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		var tag models.Tag
		err := r.db.WithContext(ctx).Where("name = ?", normalized).FirstOrCreate(&tag, models.Tag{Name: normalized}).Error
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, nil
}
