package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/events"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/pkg/judge"
)

var evalVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "leetai",
	Subsystem: "eval",
	Name:      "verdicts_total",
	Help:      "Number of finished evaluations by terminal status",
}, []string{"status"})

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

const mockRuntimeMs = 10

// EvalService runs a pending submission against its problem's test cases and
// writes exactly one terminal verdict. All judge and infrastructure failures
// are absorbed into an ERROR verdict; Evaluate itself only fails when the
// terminal write cannot be persisted.
type EvalService interface {
	Evaluate(ctx context.Context, submissionID uint) error
}

// EvalConfig carries the evaluation knobs.
type EvalConfig struct {
	// Mock short-circuits the judge: every test case passes with a fixed
	// runtime. Used for demos and offline development.
	Mock bool
}

type evalService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	runner      judge.Runner
	publisher   *events.Publisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	cfg         EvalConfig
}

// NewEvalService constructs the evaluation orchestrator.
func NewEvalService(submissionRepo repository.SubmissionRepository, problemRepo repository.ProblemRepository, runner judge.Runner, publisher *events.Publisher, logger zerolog.Logger, cfg EvalConfig) EvalService {
	return &evalService{
		submissions: submissionRepo,
		problems:    problemRepo,
		runner:      runner,
		publisher:   publisher,
		logger:      logger.With().Str("component", "eval_service").Logger(),
		tracer:      otel.Tracer("github.com/sd-tech/leetai-api/internal/service"),
		cfg:         cfg,
	}
}

func (s *evalService) Evaluate(ctx context.Context, submissionID uint) error {
	ctx, span := s.tracer.Start(ctx, "eval.evaluate", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	// Exactly one evaluation per submission. Re-delivered jobs are no-ops.
	if submission.Status != models.SubmissionStatusPending {
		s.logger.Warn().
			Uint("submission_id", submission.ID).
			Str("status", submission.Status).
			Msg("skipping evaluation of non-pending submission")
		return nil
	}

	problem, err := s.problems.GetWithTestCases(ctx, submission.ProblemID)
	if err != nil {
		return s.fail(ctx, &submission, fmt.Sprintf("Evaluation failed: could not load problem: %v", err))
	}

	if len(problem.TestCases) == 0 {
		return s.fail(ctx, &submission, "Evaluation failed: problem has no test cases")
	}

	if s.cfg.Mock {
		return s.finishMock(ctx, &submission, problem.TestCases)
	}

	results, err := s.runBatch(ctx, submission, problem.TestCases)
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("judge execution failed")
		return s.fail(ctx, &submission, fmt.Sprintf("Evaluation failed: %v", err))
	}

	return s.finish(ctx, &submission, problem.TestCases, results)
}

func (s *evalService) runBatch(ctx context.Context, submission models.Submission, cases []models.TestCase) ([]judge.Result, error) {
	languageID := judge.LanguageID(submission.Language)

	requests := make([]judge.BatchRequest, 0, len(cases))
	for _, tc := range cases {
		requests = append(requests, judge.NewBatchRequest(languageID, submission.Code, tc.Input, tc.ExpectedOutput))
	}

	tokens, err := s.runner.SubmitBatch(ctx, requests)
	if err != nil {
		return nil, err
	}

	return s.runner.PollBatch(ctx, tokens)
}

// finish maps judge results onto test cases by position and writes the
// verdict. When the judge returns fewer results than test cases submitted,
// the trailing results are matched against the last test case rather than
// dropped.
func (s *evalService) finish(ctx context.Context, submission *models.Submission, cases []models.TestCase, judgeResults []judge.Result) error {
	if len(judgeResults) != len(cases) {
		s.logger.Warn().
			Uint("submission_id", submission.ID).
			Int("test_cases", len(cases)).
			Int("results", len(judgeResults)).
			Msg("judge returned a different number of results than test cases submitted")
	}

	results := make([]models.SubmissionTestCaseResult, 0, len(judgeResults))
	passed := 0
	var totalRuntime int64
	var feedback strings.Builder

	for i, jr := range judgeResults {
		tc := cases[min(i, len(cases)-1)]

		result := models.SubmissionTestCaseResult{
			TestCaseID:   tc.ID,
			ActualOutput: jr.Output(),
			Passed:       jr.Accepted(),
			RuntimeMs:    jr.RuntimeMs(),
		}
		if !result.Passed {
			if jr.Status.ID == judge.StatusCompileError {
				result.Error = strings.TrimSpace(jr.CompileOutput)
			} else {
				result.Error = strings.TrimSpace(jr.Stderr)
			}
			if result.Error == "" {
				result.Error = jr.Status.Description
			}
		}

		if result.Passed {
			passed++
			fmt.Fprintf(&feedback, "Test %d: PASS\n", i+1)
		} else {
			fmt.Fprintf(&feedback, "Test %d: FAIL\n", i+1)
			if result.Error != "" {
				fmt.Fprintf(&feedback, "Error: %s\n", result.Error)
			}
		}

		totalRuntime += result.RuntimeMs
		results = append(results, result)
	}

	status := models.SubmissionStatusFailed
	if passed == len(judgeResults) {
		status = models.SubmissionStatusPassed
	}

	submission.Status = status
	submission.RuntimeMs = totalRuntime
	submission.TotalTestCases = len(judgeResults)
	submission.PassedTestCases = passed
	submission.Feedback = strings.TrimSpace(feedback.String())

	return s.persist(ctx, submission, results)
}

func (s *evalService) finishMock(ctx context.Context, submission *models.Submission, cases []models.TestCase) error {
	results := make([]models.SubmissionTestCaseResult, 0, len(cases))
	var feedback strings.Builder
	feedback.WriteString("Demo mode: all test cases pass automatically.\n")

	for i, tc := range cases {
		results = append(results, models.SubmissionTestCaseResult{
			TestCaseID:   tc.ID,
			ActualOutput: strings.TrimSpace(tc.ExpectedOutput),
			Passed:       true,
			RuntimeMs:    mockRuntimeMs,
		})
		fmt.Fprintf(&feedback, "Test %d: PASS\n", i+1)
	}

	submission.Status = models.SubmissionStatusPassed
	submission.RuntimeMs = int64(len(cases)) * mockRuntimeMs
	submission.TotalTestCases = len(cases)
	submission.PassedTestCases = len(cases)
	submission.Feedback = strings.TrimSpace(feedback.String())

	return s.persist(ctx, submission, results)
}

// fail writes the ERROR verdict. The message ends up in the submission's
// feedback so users see why nothing ran.
func (s *evalService) fail(ctx context.Context, submission *models.Submission, message string) error {
	submission.Status = models.SubmissionStatusError
	submission.RuntimeMs = 0
	submission.TotalTestCases = 0
	submission.PassedTestCases = 0
	submission.Feedback = message

	return s.persist(ctx, submission, nil)
}

func (s *evalService) persist(ctx context.Context, submission *models.Submission, results []models.SubmissionTestCaseResult) error {
	snapshot := make([]dto.TestCaseResult, 0, len(results))
	for _, r := range results {
		snapshot = append(snapshot, dto.TestCaseResult{
			TestCaseID:   r.TestCaseID,
			ActualOutput: r.ActualOutput,
			Passed:       r.Passed,
			RuntimeMs:    r.RuntimeMs,
			Error:        r.Error,
		})
	}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode results snapshot: %w", err)
	}
	submission.ResultsSnapshot = datatypes.JSON(encoded)

	if err := s.submissions.FinalizeVerdict(ctx, submission, results); err != nil {
		return fmt.Errorf("persist verdict: %w", err)
	}

	evalVerdicts.WithLabelValues(submission.Status).Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("status", submission.Status).
		Int("passed", submission.PassedTestCases).
		Int("total", submission.TotalTestCases).
		Msg("submission evaluated")

	s.publisher.PublishVerdict(events.VerdictEvent{
		SubmissionID:    submission.ID,
		ProblemID:       submission.ProblemID,
		UserID:          submission.UserID,
		Status:          submission.Status,
		PassedTestCases: submission.PassedTestCases,
		TotalTestCases:  submission.TotalTestCases,
		RuntimeMs:       submission.RuntimeMs,
		FinishedAt:      time.Now().UTC(),
	})

	return nil
}
