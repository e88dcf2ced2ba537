package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/events"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/pkg/judge"
)

type stubRunner struct {
	executeResult judge.Result
	executeErr    error
	executeCalls  int

	tokens    []string
	submitErr error

	results []judge.Result
	pollErr error
}

func (s *stubRunner) Execute(ctx context.Context, sourceCode, language, stdin string) (judge.Result, error) {
	s.executeCalls++
	return s.executeResult, s.executeErr
}

func (s *stubRunner) SubmitBatch(ctx context.Context, requests []judge.BatchRequest) ([]string, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if s.tokens != nil {
		return s.tokens, nil
	}
	tokens := make([]string, len(requests))
	for i := range requests {
		tokens[i] = "tok"
	}
	return tokens, nil
}

func (s *stubRunner) PollBatch(ctx context.Context, tokens []string) ([]judge.Result, error) {
	return s.results, s.pollErr
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Problem{},
		&models.TestCase{},
		&models.CodeTemplate{},
		&models.Submission{},
		&models.SubmissionTestCaseResult{},
	))
	return db
}

func seedPendingSubmission(t *testing.T, db *gorm.DB, cases []models.TestCase) models.Submission {
	t.Helper()

	user := models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	problem := models.Problem{Title: "Echo", Difficulty: models.DifficultyEasy, TestCases: cases}
	require.NoError(t, db.Create(&problem).Error)

	submission := models.Submission{
		ProblemID: problem.ID,
		UserID:    user.ID,
		Code:      "print(input())",
		Language:  "python",
		Status:    models.SubmissionStatusPending,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func newEvalService(db *gorm.DB, runner judge.Runner, mock bool) EvalService {
	return NewEvalService(
		repository.NewSubmissionRepository(db),
		repository.NewProblemRepository(db),
		runner,
		events.NewPublisher(nil, "", zerolog.Nop()),
		zerolog.Nop(),
		EvalConfig{Mock: mock},
	)
}

func accepted(stdout, runtime string) judge.Result {
	return judge.Result{
		Status: judge.Status{ID: judge.StatusAccepted, Description: "Accepted"},
		Stdout: stdout,
		Time:   runtime,
	}
}

func TestEvaluateAllTestCasesPass(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{results: []judge.Result{accepted("a", "0.010"), accepted("b", "0.020")}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{
		{Input: "a", ExpectedOutput: "a"},
		{Input: "b", ExpectedOutput: "b"},
	})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPassed, got.Status)
	require.Equal(t, 2, got.PassedTestCases)
	require.Equal(t, 2, got.TotalTestCases)
	require.Equal(t, int64(30), got.RuntimeMs)
	require.Contains(t, got.Feedback, "Test 1: PASS")
	require.Contains(t, got.Feedback, "Test 2: PASS")
	require.Len(t, got.Results, 2)
	require.NotEmpty(t, got.ResultsSnapshot)
}

func TestEvaluateMixedResultsProduceFailedVerdict(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{results: []judge.Result{
		accepted("ok", "0.010"),
		{
			Status:        judge.Status{ID: judge.StatusCompileError, Description: "Compilation Error"},
			CompileOutput: "syntax error",
		},
	}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{
		{Input: "a", ExpectedOutput: "ok"},
		{Input: "b", ExpectedOutput: "ok"},
	})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusFailed, got.Status)
	require.Equal(t, 1, got.PassedTestCases)
	require.Contains(t, got.Feedback, "Test 2: FAIL")
	require.Contains(t, got.Feedback, "Error: syntax error")

	var failing models.SubmissionTestCaseResult
	for _, r := range got.Results {
		if !r.Passed {
			failing = r
		}
	}
	require.Equal(t, "syntax error", failing.Error)
}

func TestEvaluateJudgeFailureBecomesErrorVerdict(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{submitErr: &judge.ExecutionError{Op: "submit batch", Err: errors.New("connection refused")}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{{Input: "a", ExpectedOutput: "a"}})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusError, got.Status)
	require.Contains(t, got.Feedback, "connection refused")
	require.True(t, got.IsTerminal())
}

func TestEvaluateWithoutTestCasesBecomesErrorVerdict(t *testing.T) {
	db := setupServiceDB(t)
	svc := newEvalService(db, &stubRunner{}, false)

	submission := seedPendingSubmission(t, db, nil)

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusError, got.Status)
	require.Contains(t, got.Feedback, "no test cases")
}

func TestEvaluateMockModePassesEverything(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{submitErr: errors.New("judge must not be called in mock mode")}
	svc := newEvalService(db, runner, true)

	submission := seedPendingSubmission(t, db, []models.TestCase{
		{Input: "a", ExpectedOutput: "a\n"},
		{Input: "b", ExpectedOutput: "b"},
		{Input: "c", ExpectedOutput: "c"},
	})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPassed, got.Status)
	require.Equal(t, 3, got.PassedTestCases)
	require.Equal(t, int64(30), got.RuntimeMs)
	require.Contains(t, got.Feedback, "Demo mode")
	require.Equal(t, "a", got.Results[0].ActualOutput, "mock output must be the trimmed expected output")
}

func TestEvaluateEmptyJudgeResultsYieldPassedVerdict(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{results: []judge.Result{}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{{Input: "a", ExpectedOutput: "a"}})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPassed, got.Status)
	require.Zero(t, got.PassedTestCases)
	require.Zero(t, got.TotalTestCases)
	require.Empty(t, got.Results)
}

func TestEvaluateIsIdempotentForTerminalSubmissions(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{results: []judge.Result{accepted("a", "0.010")}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{{Input: "a", ExpectedOutput: "a"}})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))
	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 1, "second evaluation must not append result rows")
}

func TestEvaluateClampsSurplusResultsToLastTestCase(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{results: []judge.Result{
		accepted("a", "0.010"),
		accepted("b", "0.010"),
		accepted("c", "0.010"),
	}}
	svc := newEvalService(db, runner, false)

	submission := seedPendingSubmission(t, db, []models.TestCase{
		{Input: "a", ExpectedOutput: "a"},
		{Input: "b", ExpectedOutput: "b"},
	})

	require.NoError(t, svc.Evaluate(context.Background(), submission.ID))

	got, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.TotalTestCases)
	require.Len(t, got.Results, 3)
	require.Equal(t, got.Results[1].TestCaseID, got.Results[2].TestCaseID)
}

func TestEvaluateMissingSubmission(t *testing.T) {
	db := setupServiceDB(t)
	svc := newEvalService(db, &stubRunner{}, false)

	err := svc.Evaluate(context.Background(), 999)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
