package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/internal/worker"
	"github.com/sd-tech/leetai-api/pkg/ai"
)

// ErrEvaluationQueueFull indicates the background queue rejected the job.
var ErrEvaluationQueueFull = errors.New("evaluation queue full, try again later")

// ErrReviewerUnavailable indicates the AI reviewer is not configured.
var ErrReviewerUnavailable = errors.New("reviewer unavailable")

// Scheduler enqueues background jobs. Satisfied by *worker.Pool.
type Scheduler interface {
	Submit(job worker.Job) bool
}

// SubmissionService accepts submissions, schedules their evaluation, and
// exposes submission reads.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionRequest) (dto.SubmissionSummary, error)
	Get(ctx context.Context, id uint) (dto.SubmissionDetails, error)
	List(ctx context.Context, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error)
	Review(ctx context.Context, payload dto.ReviewRequest) (string, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	users       repository.UserRepository
	eval        EvalService
	scheduler   Scheduler
	generator   ai.Generator
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionService constructs the submission intake service.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, problemRepo repository.ProblemRepository, userRepo repository.UserRepository, eval EvalService, scheduler Scheduler, generator ai.Generator, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		problems:    problemRepo,
		users:       userRepo,
		eval:        eval,
		scheduler:   scheduler,
		generator:   generator,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// Submit validates the payload, records the submission as PENDING, and
// enqueues its evaluation. The response returns immediately; the verdict
// arrives asynchronously.
func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionRequest) (dto.SubmissionSummary, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionSummary{}, err
	}

	language := strings.ToLower(strings.TrimSpace(payload.Language))

	if _, err := s.problems.GetByID(ctx, payload.ProblemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionSummary{}, ErrProblemNotFound
		}
		return dto.SubmissionSummary{}, err
	}

	if _, err := s.users.GetByID(ctx, payload.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionSummary{}, ErrUserNotFound
		}
		return dto.SubmissionSummary{}, err
	}

	submission := models.Submission{
		ProblemID: payload.ProblemID,
		UserID:    payload.UserID,
		Code:      payload.Code,
		Language:  language,
		Status:    models.SubmissionStatusPending,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionSummary{}, err
	}

	if !s.scheduler.Submit(s.evaluationJob(submission.ID)) {
		// The submission stays PENDING in the database; mark it ERROR so
		// it does not hang forever.
		s.forceError(context.Background(), submission.ID, "Evaluation failed: queue full")
		return dto.SubmissionSummary{}, ErrEvaluationQueueFull
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("problem_id", submission.ProblemID).
		Str("language", language).
		Msg("submission accepted")

	return dto.NewSubmissionSummary(submission), nil
}

// evaluationJob wraps one evaluation for the worker pool. Any panic or error
// escaping the orchestrator still leaves the submission in a terminal state.
func (s *submissionService) evaluationJob(submissionID uint) worker.Job {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Uint("submission_id", submissionID).Interface("panic", r).Msg("evaluation panicked")
				s.forceError(ctx, submissionID, "Evaluation failed: internal error")
			}
		}()

		if err := s.eval.Evaluate(ctx, submissionID); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("evaluation could not persist a verdict")
			s.forceError(ctx, submissionID, "Evaluation failed: internal error")
		}
	}
}

// forceError is the last-resort terminal write, used when the orchestrator
// itself failed. Errors here are logged and dropped.
func (s *submissionService) forceError(ctx context.Context, submissionID uint, message string) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil || submission.IsTerminal() {
		return
	}

	submission.Status = models.SubmissionStatusError
	submission.Feedback = message
	if err := s.submissions.FinalizeVerdict(ctx, &submission, nil); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to force error status")
	}
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionDetails, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetails{}, ErrSubmissionNotFound
		}
		return dto.SubmissionDetails{}, err
	}

	return dto.NewSubmissionDetails(submission), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) (dto.SubmissionListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	submissions, total, err := s.submissions.List(ctx, repository.SubmissionQuery{
		UserID:    filter.UserID,
		ProblemID: filter.ProblemID,
		Status:    strings.ToUpper(strings.TrimSpace(filter.Status)),
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	})
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.NewSubmissionSummary(submission))
	}

	return dto.SubmissionListResponse{
		Items: items,
		Pagination: dto.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: int(total),
		},
	}, nil
}

// Review asks the AI reviewer for feedback on code without running it.
func (s *submissionService) Review(ctx context.Context, payload dto.ReviewRequest) (string, error) {
	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}
	if s.generator == nil {
		return "", ErrReviewerUnavailable
	}

	problem, err := s.problems.GetByID(ctx, payload.ProblemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProblemNotFound
		}
		return "", err
	}

	return s.generator.Review(ctx, ai.ReviewInput{
		ProblemDescription: problem.Description,
		Language:           payload.Language,
		Code:               payload.Code,
	})
}
