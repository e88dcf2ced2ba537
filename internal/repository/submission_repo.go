package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/models"
)

// SubmissionQuery defines filters and pagination for submission listings.
type SubmissionQuery struct {
	UserID    uint
	ProblemID uint
	Status    string
	Offset    int
	Limit     int
}

// SubmissionRepository exposes persistence operations for submissions and
// their per-test-case results.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error)
	FinalizeVerdict(ctx context.Context, submission *models.Submission, results []models.SubmissionTestCaseResult) error
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Results").
		Preload("Problem").
		Preload("User").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Submission{})

	if query.UserID != 0 {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.ProblemID != 0 {
		db = db.Where("problem_id = ?", query.ProblemID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
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

	var submissions []models.Submission
	if err := db.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// FinalizeVerdict writes the terminal verdict and its per-test-case result
// rows in a single transaction, so readers never observe a terminal status
// without its results.
func (r *submissionRepository) FinalizeVerdict(ctx context.Context, submission *models.Submission, results []models.SubmissionTestCaseResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Updates(map[string]interface{}{
				"status":            submission.Status,
				"runtime_ms":        submission.RuntimeMs,
				"total_test_cases":  submission.TotalTestCases,
				"passed_test_cases": submission.PassedTestCases,
				"feedback":          submission.Feedback,
				"results_snapshot":  submission.ResultsSnapshot,
			}).Error; err != nil {
			return err
		}

		if len(results) == 0 {
			return nil
		}

		for i := range results {
			results[i].ID = 0
			results[i].SubmissionID = submission.ID
		}
		return tx.Create(&results).Error
	})
}
